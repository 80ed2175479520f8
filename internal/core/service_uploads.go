package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"rentcore/internal/blob"
	blobcore "rentcore/internal/blob/core"
	"rentcore/pkg/domain"
)

// ErrNoBlobStore is returned by upload operations when no blob store is configured.
var ErrNoBlobStore = errors.New("no blob store configured")

// Upload is a file handed to one of the upload operations.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// UploadContractDocument stores the file and appends it to the contract's documents.
func (s *Service) UploadContractDocument(ctx context.Context, contractID string, up Upload) (Contract, error) {
	if err := s.requireExists(ctx, domain.EntityContract, contractID); err != nil {
		return Contract{}, err
	}
	var updated Contract
	err := s.withUpload(ctx, blobcore.ContractDocumentKey(contractID, up.Filename), up, func(info blob.Info) error {
		var err error
		updated, _, err = s.AddDocumentToContract(ctx, contractID, Document{Name: up.Filename, URL: info.URL})
		return err
	})
	return updated, err
}

// AttachTicketPhoto stores the image and appends its URL to the ticket photos.
func (s *Service) AttachTicketPhoto(ctx context.Context, ticketID string, up Upload) (Ticket, error) {
	if err := s.requireExists(ctx, domain.EntityTicket, ticketID); err != nil {
		return Ticket{}, err
	}
	var updated Ticket
	err := s.withUpload(ctx, blobcore.TicketPhotoKey(ticketID, up.Filename), up, func(info blob.Info) error {
		_, err := s.run(ctx, "attach_ticket_photo", func(tx Transaction) (activity, error) {
			var err error
			updated, err = tx.UpdateTicket(ticketID, func(t *Ticket) error {
				if t.Status == domain.TicketClosed {
					return domain.ConflictError{Entity: domain.EntityTicket, ID: ticketID, Reason: "ticket is closed"}
				}
				if len(t.Photos) >= domain.MaxTicketPhotos {
					return domain.ValidationError{Entity: domain.EntityTicket, Field: "photos", Reason: fmt.Sprintf("at most %d photos", domain.MaxTicketPhotos)}
				}
				t.Photos = append(t.Photos, info.URL)
				return nil
			})
			if err != nil {
				return activity{}, err
			}
			return activity{domain.EntityTicket, ticketID, "photo attached"}, nil
		})
		return err
	})
	return updated, err
}

// AttachTicketInvoice stores the invoice and records its URL on the ticket.
func (s *Service) AttachTicketInvoice(ctx context.Context, ticketID string, up Upload) (Ticket, error) {
	if err := s.requireExists(ctx, domain.EntityTicket, ticketID); err != nil {
		return Ticket{}, err
	}
	var updated Ticket
	err := s.withUpload(ctx, blobcore.TicketInvoiceKey(ticketID, up.Filename), up, func(info blob.Info) error {
		url := info.URL
		var err error
		updated, _, err = s.UpdateTicket(ctx, ticketID, TicketPatch{InvoiceURL: &url})
		return err
	})
	return updated, err
}

// withUpload writes the file, then runs record; the blob is removed again when record fails.
func (s *Service) withUpload(ctx context.Context, key string, up Upload, record func(blob.Info) error) error {
	if s.blobs == nil {
		return ErrNoBlobStore
	}
	if up.Body == nil {
		return domain.ValidationError{Entity: "upload", Field: "body", Reason: "is required"}
	}
	info, err := s.blobs.Put(ctx, key, up.Body, blob.PutOptions{ContentType: up.ContentType})
	if err != nil {
		return fmt.Errorf("store upload: %w", err)
	}
	if err := record(info); err != nil {
		if _, derr := s.blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.logger.Error("orphaned upload", "key", key, "error", derr)
		}
		return err
	}
	return nil
}

func (s *Service) requireExists(ctx context.Context, entity domain.EntityType, id string) error {
	return s.store.View(ctx, func(view TransactionView) error {
		var ok bool
		switch entity {
		case domain.EntityContract:
			_, ok = view.FindContract(id)
		case domain.EntityTicket:
			_, ok = view.FindTicket(id)
		}
		if !ok {
			return domain.NotFoundError{Entity: entity, ID: id}
		}
		return nil
	})
}
