package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentcore/pkg/domain"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	s := NewStore(nil)
	s.SetNowFunc(func() time.Time { return fixedNow })
	return s
}

func seedProperty(t *testing.T, s *Store) Property {
	t.Helper()
	var created Property
	_, err := s.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateProperty(Property{Title: "Loft", SizeM2: 40, Rooms: 1, RentAmount: 900})
		return err
	})
	if err != nil {
		t.Fatalf("seed property: %v", err)
	}
	return created
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.Snapshot().FindProperty("missing"); ok {
			t.Fatalf("expected missing property lookup")
		}
		created, err := tx.CreateProperty(Property{Title: "Loft"})
		if err != nil {
			return err
		}
		if created.ID == "" {
			t.Fatalf("expected generated ID")
		}
		if created.OccupancyStatus != domain.OccupancyAvailable {
			t.Fatalf("expected default available status, got %s", created.OccupancyStatus)
		}
		if !created.CreatedAt.Equal(fixedNow) {
			t.Fatalf("expected stamped creation time")
		}
		if len(tx.Snapshot().ListProperties()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	snapshot := store.ExportState()
	if len(snapshot.Properties) != 1 {
		t.Fatalf("expected exported property")
	}
	store.ImportState(Snapshot{})
	_ = store.View(ctx, func(v domain.TransactionView) error {
		if len(v.ListProperties()) != 0 {
			t.Fatalf("expected cleared state")
		}
		return nil
	})
	store.ImportState(snapshot)
	_ = store.View(ctx, func(v domain.TransactionView) error {
		if len(v.ListProperties()) != 1 {
			t.Fatalf("expected restored state")
		}
		return nil
	})
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
	if store.NowFunc() == nil {
		t.Fatalf("expected now func")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStoreRollsBackOnError(t *testing.T) {
	store := newTestStore()
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateOwner(Owner{FullName: "Ana"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if len(store.ExportState().Owners) != 0 {
		t.Fatalf("expected rollback")
	}
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateTenant(Tenant{FullName: "Bo", DocumentID: "X1"})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict classification")
	}
	if len(store.ExportState().Tenants) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock, Message: "nope"}}}, nil
}

type recordingRule struct{ changes []domain.Change }

func (*recordingRule) Name() string { return "record" }

func (r *recordingRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	r.changes = append(r.changes, changes...)
	return domain.Result{}, nil
}

func TestStoreRecordsChanges(t *testing.T) {
	rec := &recordingRule{}
	engine := domain.NewRulesEngine()
	engine.Register(rec)
	store := NewStore(engine)
	store.SetNowFunc(func() time.Time { return fixedNow })

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		p, err := tx.CreateProperty(Property{Title: "Loft"})
		if err != nil {
			return err
		}
		if _, err := tx.UpdateProperty(p.ID, func(p *Property) error {
			p.Title = "Loft B"
			return nil
		}); err != nil {
			return err
		}
		return tx.DeleteProperty(p.ID)
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if len(rec.changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(rec.changes))
	}
	updated, ok := domain.DecodePayload[Property](rec.changes[1].After)
	if !ok || updated.Title != "Loft B" {
		t.Fatalf("expected decoded update payload, got %+v", updated)
	}
	if rec.changes[2].Action != domain.ActionDelete || rec.changes[2].After.Defined() {
		t.Fatalf("expected delete change without after payload")
	}
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	store := newTestStore()
	_, _ = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdateContract("missing", func(*Contract) error { return nil }); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if err := tx.DeleteOwner("missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if err := tx.DeleteNotification("missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		return nil
	})
}

func TestUpdatePreservesIdentity(t *testing.T) {
	store := newTestStore()
	p := seedProperty(t, store)
	later := fixedNow.Add(time.Hour)
	store.SetNowFunc(func() time.Time { return later })
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		updated, err := tx.UpdateProperty(p.ID, func(p *Property) error {
			p.ID = "hijack"
			p.CreatedAt = time.Time{}
			return nil
		})
		if err != nil {
			return err
		}
		if updated.ID != p.ID || !updated.CreatedAt.Equal(fixedNow) || !updated.UpdatedAt.Equal(later) {
			t.Fatalf("unexpected identity fields: %+v", updated.Base)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestDuplicateIDConflicts(t *testing.T) {
	store := newTestStore()
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateOwner(Owner{Base: domain.Base{ID: "o1"}, FullName: "A"}); err != nil {
			return err
		}
		_, err := tx.CreateOwner(Owner{Base: domain.Base{ID: "o1"}, FullName: "B"})
		return err
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestPaymentMonthUniqueness(t *testing.T) {
	store := newTestStore()
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		first, err := tx.CreatePayment(Payment{ContractID: "c1", Month: time.Date(2024, 2, 17, 9, 0, 0, 0, time.UTC), Amount: 10})
		if err != nil {
			return err
		}
		if !first.Month.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("expected normalized month, got %s", first.Month)
		}
		if first.Status != domain.PaymentPending {
			t.Fatalf("expected pending default")
		}
		_, err = tx.CreatePayment(Payment{ContractID: "c1", Month: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Amount: 10})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected duplicate month conflict, got %v", err)
		}
		_, err = tx.CreatePayment(Payment{ContractID: "c2", Month: first.Month, Amount: 10})
		return err
	})
	if err != nil {
		t.Fatalf("payments: %v", err)
	}
}

func TestDeleteGuards(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		owner, _ := tx.CreateOwner(Owner{FullName: "Ana"})
		tenant, _ := tx.CreateTenant(Tenant{FullName: "Bo", DocumentID: "D1"})
		prop, _ := tx.CreateProperty(Property{OwnerID: owner.ID, Title: "Loft"})
		contract, err := tx.CreateContract(Contract{PropertyID: prop.ID, TenantID: tenant.ID})
		if err != nil {
			return err
		}
		contractorID := "k1"
		if _, err := tx.CreateContractor(Contractor{Base: domain.Base{ID: contractorID}, Name: "Fixit"}); err != nil {
			return err
		}
		ticket, _ := tx.CreateTicket(Ticket{PropertyID: prop.ID, TenantID: tenant.ID, Title: "Leak", ContractorID: &contractorID})

		if err := tx.DeleteTenant(tenant.ID); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected tenant guard, got %v", err)
		}
		if err := tx.DeleteOwner(owner.ID); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected owner guard, got %v", err)
		}
		if err := tx.DeleteProperty(prop.ID); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected property guard, got %v", err)
		}
		if err := tx.DeleteContractor(contractorID); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected contractor guard, got %v", err)
		}

		if _, err := tx.UpdateContract(contract.ID, func(c *Contract) error {
			c.Status = domain.ContractTerminated
			return nil
		}); err != nil {
			return err
		}
		if _, err := tx.UpdateTicket(ticket.ID, func(tk *Ticket) error {
			tk.Status = domain.TicketClosed
			return nil
		}); err != nil {
			return err
		}
		if err := tx.DeleteTenant(tenant.ID); err != nil {
			return err
		}
		if err := tx.DeleteOwner(owner.ID); err != nil {
			return err
		}
		return tx.DeleteContractor(contractorID)
	})
	if err != nil {
		t.Fatalf("delete guards: %v", err)
	}
}

func TestClonesAreIsolated(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	var contractID string
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		c, err := tx.CreateContract(Contract{PropertyID: "p", TenantID: "t", Documents: []domain.Document{{Name: "lease", URL: "u"}}})
		contractID = c.ID
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = store.View(ctx, func(v domain.TransactionView) error {
		c, _ := v.FindContract(contractID)
		c.Documents[0].Name = "mutated"
		return nil
	})
	_ = store.View(ctx, func(v domain.TransactionView) error {
		c, ok := v.FindContract(contractID)
		if !ok || c.Documents[0].Name != "lease" {
			t.Fatalf("expected isolated clone, got %+v", c.Documents)
		}
		return nil
	})
}

func TestActivityAndNotifications(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		n, err := tx.CreateNotification(Notification{UserID: "u1", Title: "hello"})
		if err != nil {
			return err
		}
		if _, err := tx.UpdateNotification(n.ID, func(n *Notification) error {
			n.Read = true
			return nil
		}); err != nil {
			return err
		}
		_, err = tx.AppendActivity(ActivityLog{Action: "create", Entity: domain.EntityNotification, EntityID: n.ID})
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	_ = store.View(ctx, func(v domain.TransactionView) error {
		notes := v.ListNotifications()
		if len(notes) != 1 || !notes[0].Read {
			t.Fatalf("expected read notification, got %+v", notes)
		}
		if _, ok := v.FindNotification(notes[0].ID); !ok {
			t.Fatalf("expected notification lookup")
		}
		if len(v.ListActivity()) != 1 {
			t.Fatalf("expected one activity entry")
		}
		return nil
	})
}

func TestSameInstantRecordsKeepInsertionOrder(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	titles := []string{"first", "second", "third", "fourth", "fifth"}
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, title := range titles {
			if _, err := tx.CreateNotification(Notification{UserID: "u1", Title: title}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	assertOrder := func(s *Store, want []string) {
		t.Helper()
		_ = s.View(ctx, func(v domain.TransactionView) error {
			notes := v.ListNotifications()
			if len(notes) != len(want) {
				t.Fatalf("expected %d notifications, got %d", len(want), len(notes))
			}
			for i, n := range notes {
				if n.Title != want[i] {
					t.Fatalf("position %d: expected %q, got %q", i, want[i], n.Title)
				}
			}
			return nil
		})
	}
	assertOrder(store, titles)

	reloaded := newTestStore()
	reloaded.ImportState(store.ExportState())
	_, err = reloaded.RunInTransaction(ctx, func(tx domain.Transaction) error {
		n, err := tx.CreateNotification(Notification{UserID: "u1", Title: "sixth"})
		if err == nil && n.Seq != uint64(len(titles)+1) {
			t.Fatalf("expected the counter to resume after reload, got seq %d", n.Seq)
		}
		return err
	})
	if err != nil {
		t.Fatalf("transaction after reload: %v", err)
	}
	assertOrder(reloaded, append(append([]string(nil), titles...), "sixth"))
}
