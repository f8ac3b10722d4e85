package notice

import (
	"time"

	"github.com/trezcool/educonnect/core"
)

type Type string

// Types
const (
	TypeSchool  Type = "school"
	TypeTeacher Type = "teacher"
)

var AllTypes = []Type{TypeSchool, TypeTeacher}

func (t Type) Valid() bool {
	for _, tp := range AllTypes {
		if tp == t {
			return true
		}
	}
	return false
}

// Notice is a message published on the school board.
type Notice struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Type       Type      `json:"type"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"` // kept if the author is deleted
	CreatedAt  time.Time `json:"created_at"`  // UTC
}

// NewNotice contains information needed to publish a Notice.
type NewNotice struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
	Type    Type   `json:"type" validate:"notice_type"`
}

func (nn *NewNotice) Validate(v *core.Validator) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Content = core.CleanString(nn.Content)
	nn.Type = Type(core.CleanString(string(nn.Type), true /* lower */))
	if nn.Type == "" {
		nn.Type = TypeSchool
	}
	return v.Struct(nn)
}

type QueryFilter struct {
	Type Type `query:"type"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf == nil || qf.Type == ""
}

func (qf *QueryFilter) Clean() {
	qf.Type = Type(core.CleanString(string(qf.Type), true /* lower */))
}

func (qf *QueryFilter) Match(n Notice) bool {
	return qf.IsEmpty() || n.Type == qf.Type
}
