package domain

import "time"

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's calendar month in UTC. Payment
// months are always stored in this normalized form.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// MonthKey renders a payment month as YYYY-MM.
func MonthKey(t time.Time) string {
	return MonthStart(t).Format("2006-01")
}

func daysIn(month time.Time) int {
	return MonthStart(month).AddDate(0, 1, -1).Day()
}

// DueDate returns the day rent for month falls due under c. A payment day past
// the end of a short month is clamped to its last day.
func DueDate(c Contract, month time.Time) time.Time {
	start := MonthStart(month)
	day := c.PaymentDay
	if day < 1 {
		day = 1
	}
	if last := daysIn(start); day > last {
		day = last
	}
	return start.AddDate(0, 0, day-1)
}

// EffectiveContractStatus derives the read-time status of c. An in-force
// contract whose end date lies before today reads as expired.
func EffectiveContractStatus(c Contract, now time.Time) ContractStatus {
	if c.Status.InForce() && DateOf(c.EndDate).Before(DateOf(now)) {
		return ContractExpired
	}
	return c.Status
}

// EffectivePaymentStatus derives the read-time status of p under c. Unpaid
// rent reads as overdue once today is past its due date.
func EffectivePaymentStatus(p Payment, c Contract, now time.Time) PaymentStatus {
	if p.Status == PaymentPaid {
		return PaymentPaid
	}
	if DateOf(now).After(DueDate(c, p.Month)) {
		return PaymentOverdue
	}
	if p.Status == "" {
		return PaymentPending
	}
	return p.Status
}

// PaymentTransitionAllowed reports whether a stored payment may move from one
// status to another. Paid is terminal; overdue only moves to paid.
func PaymentTransitionAllowed(from, to PaymentStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case PaymentPending:
		return to == PaymentPaid || to == PaymentOverdue
	case PaymentOverdue:
		return to == PaymentPaid
	}
	return false
}

var ticketRank = map[TicketStatus]int{
	TicketOpen:       0,
	TicketInProgress: 1,
	TicketClosed:     2,
}

// TicketRank returns the workflow position of s, or -1 when s is unknown.
func TicketRank(s TicketStatus) int {
	if r, ok := ticketRank[s]; ok {
		return r
	}
	return -1
}

// TicketTransitionAllowed reports whether a ticket may move from one status to
// another. Movement is forward-only; forward skips are allowed.
func TicketTransitionAllowed(from, to TicketStatus) bool {
	rf, rt := TicketRank(from), TicketRank(to)
	if rf < 0 || rt < 0 {
		return false
	}
	return rt >= rf
}

// Installment is one month of rent in a contract's payment schedule.
type Installment struct {
	Month     time.Time     `json:"month"`
	DueDate   time.Time     `json:"due_date"`
	Amount    float64       `json:"amount"`
	Status    PaymentStatus `json:"status"`
	PaymentID string        `json:"payment_id,omitempty"`
}

// PaymentSchedule lists every month covered by c, matched against the
// recorded payments. Months with no payment row are pending until their due
// date passes and overdue afterwards.
func PaymentSchedule(c Contract, payments []Payment, now time.Time) []Installment {
	if c.EndDate.Before(c.StartDate) {
		return nil
	}
	byMonth := make(map[string]Payment, len(payments))
	for _, p := range payments {
		if p.ContractID == c.ID {
			byMonth[MonthKey(p.Month)] = p
		}
	}
	var out []Installment
	last := MonthStart(c.EndDate)
	for m := MonthStart(c.StartDate); !m.After(last); m = m.AddDate(0, 1, 0) {
		inst := Installment{Month: m, DueDate: DueDate(c, m), Amount: c.MonthlyAmount}
		if p, ok := byMonth[MonthKey(m)]; ok {
			inst.Amount = p.Amount
			inst.PaymentID = p.ID
			inst.Status = EffectivePaymentStatus(p, c, now)
		} else {
			inst.Status = EffectivePaymentStatus(Payment{Month: m, Status: PaymentPending}, c, now)
		}
		out = append(out, inst)
	}
	return out
}
