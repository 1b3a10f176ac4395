package domain

import "strings"

// CardIDPrefix prefixes every allocated card id.
const CardIDPrefix = "ca"

// Card represents one card. ColumnID alone decides which column owns it.
type Card struct {
	ID          string
	ColumnID    string
	Title       string
	Description string
}

// CardInput holds the values accepted by NewCard.
type CardInput struct {
	ID          string
	ColumnID    string
	Title       string
	Description string
}

// NewCard constructs a new value for this package.
func NewCard(in CardInput) (Card, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.ColumnID = strings.TrimSpace(in.ColumnID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.ID == "" {
		return Card{}, ErrInvalidID
	}
	if in.ColumnID == "" {
		return Card{}, ErrInvalidColumnID
	}
	if in.Title == "" {
		return Card{}, ErrInvalidTitle
	}
	return Card(in), nil
}

// UpdateDetails replaces the display fields of the card.
func (c *Card) UpdateDetails(title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	c.Title = title
	c.Description = strings.TrimSpace(description)
	return nil
}
