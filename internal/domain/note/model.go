package note

import (
	"time"

	"github.com/google/uuid"
)

const (
	maxTitleLength = 100
	maxTextLength  = 1000
	dateLayout     = "2006-01-02"
)

// Note is a health journal entry. Title and text are stored encrypted.
type Note struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Hdid        string    `db:"hdid" json:"hdid"`
	Title       string    `db:"title" json:"title" validate:"required,max=100"`
	Text        string    `db:"text" json:"text" validate:"max=1000"`
	JournalDate Date      `db:"journal_date" json:"journal_date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
	Version     int       `db:"version" json:"version"`
}

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		d.Time = time.Time{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return &time.ParseError{Layout: dateLayout, Value: s}
	}
	t, err := time.Parse(dateLayout, s[1:len(s)-1])
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}
