package models

import "time"

// ChatCharKey identifies an active character: the same character may be active
// several times with different image variants.
type ChatCharKey struct {
	CharID string `json:"char_id"`
	Img    string `json:"img"`
}

// ChatChar is a character together with the image variant chosen for it.
type ChatChar struct {
	Character Character `json:"character"`
	Img       string    `json:"img"`
}

func NewChatChar(ch Character, img string) ChatChar {
	return ChatChar{Character: ch, Img: img}
}

func (c ChatChar) Key() ChatCharKey {
	return ChatCharKey{CharID: c.Character.ID, Img: c.Img}
}

func (c ChatChar) Ref() *CharRef {
	return &CharRef{CharID: c.Character.ID, Img: c.Img}
}

// CharRef is the author tag stored on a chat item.
type CharRef struct {
	CharID string `json:"char_id"`
	Img    string `json:"img"`
}

// ChatItem is one persisted chat message. A nil Char means the player wrote it.
type ChatItem struct {
	ID        string    `json:"id"`
	Position  int       `json:"position"`
	Char      *CharRef  `json:"char"`
	Content   string    `json:"content"`
	IsImage   bool      `json:"is_image"`
	CreatedAt time.Time `json:"created_at"`
}
