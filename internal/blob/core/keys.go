package core

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// ContractDocumentKey returns a fresh key for a file attached to a contract.
func ContractDocumentKey(contractID, filename string) string {
	return objectKey("contracts", contractID, "documents", filename)
}

// TicketPhotoKey returns a fresh key for a ticket photo.
func TicketPhotoKey(ticketID, filename string) string {
	return objectKey("tickets", ticketID, "photos", filename)
}

// TicketInvoiceKey returns a fresh key for a ticket invoice.
func TicketInvoiceKey(ticketID, filename string) string {
	return objectKey("tickets", ticketID, "invoices", filename)
}

// objectKey joins the parts under a random segment so repeated uploads of the
// same filename never collide with the create-only Put.
func objectKey(kind, ownerID, sub, filename string) string {
	name := SanitizeFilename(filename)
	return path.Join(kind, ownerID, sub, uuid.NewString(), name)
}

// SanitizeFilename strips directory components and characters that are unsafe in keys.
func SanitizeFilename(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "file"
	}
	return name
}
