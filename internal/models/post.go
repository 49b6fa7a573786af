package models

// PostIndex is the search collection posts are mirrored into.
const PostIndex = "posts"

type Post struct {
	BaseModel
	Body     string `gorm:"size:140;not null"`
	Language string `gorm:"size:5"`
	UserID   uint   `gorm:"index;not null"`
	User     *User  `gorm:"foreignKey:UserID"`
}

var _ Searchable = (*Post)(nil)

func (p *Post) SearchIndex() string {
	return PostIndex
}

func (p *Post) SearchID() uint {
	return p.ID
}

func (p *Post) SearchFields() map[string]interface{} {
	return map[string]interface{}{
		"body": p.Body,
	}
}
