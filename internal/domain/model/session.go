package model

// Session — сессия пользователя в Redis.
// Создаётся вне сервиса (login flow); здесь только читается и дополняется штампами.
// JSON-формат значения: {"key": "<user id>", "stamp": [1, 5, 7]}.
type Session struct {
	// Token — ключ сессии (заголовок tiptap-token), в значении не хранится
	Token string `json:"-"`
	// UserID — идентификатор пользователя
	UserID string `json:"key"`
	// Stamps — уже полученные штампы; nil для сессий, созданных до появления штампов
	Stamps []int `json:"stamp,omitempty"`
}

// HeldStamps возвращает полученные штампы, никогда не nil.
func (s *Session) HeldStamps() []int {
	if s.Stamps == nil {
		return []int{}
	}
	return s.Stamps
}

// Clone возвращает независимую копию сессии.
func (s *Session) Clone() *Session {
	c := *s
	if s.Stamps != nil {
		c.Stamps = append([]int(nil), s.Stamps...)
	}
	return &c
}
