package catalog

import (
	"time"

	"github.com/trezcool/sose/core"
)

// OrderingFields are the fields books may be ordered by.
var OrderingFields = []string{"title", "author", "subject", "created_at", "available_copies"}

type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Subject         string    `json:"subject,omitempty"`
	ISBN            string    `json:"isbn,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	IsDigital       bool      `json:"is_digital"`
	DigitalURL      string    `json:"digital_url,omitempty"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// OnLoan returns the number of copies currently issued.
func (b Book) OnLoan() int { return b.TotalCopies - b.AvailableCopies }

// NewBook contains information needed to create a new Book.
type NewBook struct {
	Title       string `json:"title" validate:"required,max=255"`
	Author      string `json:"author" validate:"required,max=255"`
	Subject     string `json:"subject" validate:"max=100"`
	ISBN        string `json:"isbn" validate:"omitempty,isbn_"`
	TotalCopies int    `json:"total_copies" validate:"gte=1"`
	IsDigital   bool   `json:"is_digital"`
	DigitalURL  string `json:"digital_url" validate:"omitempty,url"`
	Description string `json:"description" validate:"max=5000"`
}

func (nb *NewBook) Clean() {
	nb.Title = core.CleanString(nb.Title)
	nb.Author = core.CleanString(nb.Author)
	nb.Subject = core.CleanString(nb.Subject)
	nb.ISBN = core.CleanString(nb.ISBN)
	nb.DigitalURL = core.CleanString(nb.DigitalURL)
	nb.Description = core.CleanString(nb.Description)
}

// UpdateBook defines what information may be provided to modify an existing Book.
// Nil fields are left unchanged. Available copies are never set directly.
type UpdateBook struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Subject     *string `json:"subject"`
	ISBN        *string `json:"isbn"`
	TotalCopies *int    `json:"total_copies"`
	IsDigital   *bool   `json:"is_digital"`
	DigitalURL  *string `json:"digital_url"`
	Description *string `json:"description"`
}

// merge applies the update over the book, as a NewBook to be validated.
func (ub UpdateBook) merge(book Book) NewBook {
	nb := NewBook{
		Title:       book.Title,
		Author:      book.Author,
		Subject:     book.Subject,
		ISBN:        book.ISBN,
		TotalCopies: book.TotalCopies,
		IsDigital:   book.IsDigital,
		DigitalURL:  book.DigitalURL,
		Description: book.Description,
	}
	if ub.Title != nil {
		nb.Title = *ub.Title
	}
	if ub.Author != nil {
		nb.Author = *ub.Author
	}
	if ub.Subject != nil {
		nb.Subject = *ub.Subject
	}
	if ub.ISBN != nil {
		nb.ISBN = *ub.ISBN
	}
	if ub.TotalCopies != nil {
		nb.TotalCopies = *ub.TotalCopies
	}
	if ub.IsDigital != nil {
		nb.IsDigital = *ub.IsDigital
		if !nb.IsDigital && ub.DigitalURL == nil {
			nb.DigitalURL = ""
		}
	}
	if ub.DigitalURL != nil {
		nb.DigitalURL = *ub.DigitalURL
	}
	if ub.Description != nil {
		nb.Description = *ub.Description
	}
	nb.Clean()
	return nb
}

type QueryFilter struct {
	// Search does a case-insensitive substring match on title, author, subject or isbn.
	Search    string `query:"search"`
	Subject   string `query:"subject"`
	IsDigital *bool  `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Subject = core.CleanString(qf.Subject)
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Subject == "" && qf.IsDigital == nil
}

// Stats aggregates the catalog inventory.
type Stats struct {
	Titles          int `json:"titles" db:"titles"`
	DigitalTitles   int `json:"digital_titles" db:"digital_titles"`
	TotalCopies     int `json:"total_copies" db:"total_copies"`
	AvailableCopies int `json:"available_copies" db:"available_copies"`
	OnLoan          int `json:"on_loan" db:"-"`
}
