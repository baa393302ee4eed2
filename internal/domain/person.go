package domain

import (
	"time"

	"github.com/google/uuid"
)

// Person is anyone that can take part in a project: students, advisors,
// jurors and staff. DocumentNumber is unique.
type Person struct {
	ID             uuid.UUID `json:"id"`
	DocumentNumber string    `json:"document_number"`
	DocumentTypeID uuid.UUID `json:"document_type_id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	Confirmed      bool      `json:"confirmed"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewPerson creates an unconfirmed person record
func NewPerson(documentNumber string, documentTypeID uuid.UUID, fullName, email string) Person {
	return Person{
		ID:             uuid.New(),
		DocumentNumber: documentNumber,
		DocumentTypeID: documentTypeID,
		FullName:       fullName,
		Email:          email,
		Confirmed:      false,
		CreatedAt:      time.Now(),
	}
}
