package domain

import "time"

// Базовые идентификаторы. В реляционной схеме это BIGINT,
// заказы получают id из генератора (idgen).
type UserID = int64
type ShopID = int64
type VoucherID = int64
type BlogID = int64
type OrderID = int64

// Пользователь платформы
type User struct {
	ID        UserID    `json:"id"`
	Phone     string    `json:"phone"`
	Nickname  string    `json:"nickname"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

// UserDTO — то, что храним в сессии и отдаём наружу (без телефона).
type UserDTO struct {
	ID       UserID `json:"id"`
	Nickname string `json:"nickname"`
	Icon     string `json:"icon"`
}

func (u User) DTO() UserDTO {
	return UserDTO{ID: u.ID, Nickname: u.Nickname, Icon: u.Icon}
}

// Заведение (магазин/кафе)
type Shop struct {
	ID        ShopID    `json:"id"`
	Name      string    `json:"name"`
	TypeID    int64     `json:"type_id"`
	Address   string    `json:"address"`
	X         float64   `json:"x"` // долгота
	Y         float64   `json:"y"` // широта
	AvgPrice  int64     `json:"avg_price"`
	Sold      int64     `json:"sold"`
	Score     int32     `json:"score"` // рейтинг x10
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`

	// Заполняется только гео-поиском, в БД не хранится.
	Distance float64 `json:"distance,omitempty"`
}

type ShopType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
	Sort int32  `json:"sort"`
}

// Секкилл-купон: окно продаж + остаток.
// Stock мутируется ТОЛЬКО условным декрементом в VouchersRepo.
type Voucher struct {
	ID        VoucherID `json:"id"`
	ShopID    ShopID    `json:"shop_id"`
	Title     string    `json:"title"`
	Stock     int32     `json:"stock"`
	BeginTime time.Time `json:"begin_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created"`
}

// Заказ по купону. Создаётся ровно один на пару (user, voucher),
// после создания не изменяется.
type Order struct {
	ID        OrderID   `json:"id"`
	UserID    UserID    `json:"user_id"`
	VoucherID VoucherID `json:"voucher_id"`
	CreatedAt time.Time `json:"created"`
}

// Заметка о посещении ("блог")
type Blog struct {
	ID        BlogID    `json:"id"`
	UserID    UserID    `json:"user_id"`
	ShopID    ShopID    `json:"shop_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Images    string    `json:"images"` // ключи в хранилище через запятую
	Liked     int64     `json:"liked"`
	CreatedAt time.Time `json:"created"`

	// Обогащение на чтении, в БД не хранится.
	AuthorName string `json:"name,omitempty"`
	AuthorIcon string `json:"icon,omitempty"`
	IsLiked    bool   `json:"is_liked"`
}

type Follow struct {
	UserID       UserID    `json:"user_id"`        // кто подписан
	FollowUserID UserID    `json:"follow_user_id"` // на кого
	CreatedAt    time.Time `json:"created"`
}

// Результат скролл-пагинации ленты.
// MinTime/Offset — курсор следующей страницы.
type ScrollResult struct {
	List    []Blog `json:"list"`
	MinTime int64  `json:"min_time"`
	Offset  int    `json:"offset"`
}
