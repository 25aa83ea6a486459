package guest

import (
	"sort"
	"strings"

	"github.com/appetiteclub/tableside/services/guest/internal/backend"
	"github.com/shopspring/decimal"
)

const (
	DefaultTaxRate  = 0.20
	DefaultCurrency = "€"

	BillSourceRemote = "remote"
	BillSourceLocal  = "local"
)

// BillPolicy sets how local bills are priced. The zero value means the
// default tax rate and currency; a zero rate needs an explicit currency.
type BillPolicy struct {
	TaxRate  float64
	Currency string
}

func (p BillPolicy) withDefaults() BillPolicy {
	if p == (BillPolicy{}) || p.TaxRate < 0 {
		p.TaxRate = DefaultTaxRate
	}
	if strings.TrimSpace(p.Currency) == "" {
		p.Currency = DefaultCurrency
	}
	return p
}

type BillLine struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
	Round      int     `json:"round"`
}

type BillRound struct {
	Round    int        `json:"round"`
	Items    []BillLine `json:"items"`
	Subtotal float64    `json:"subtotal"`
}

// Bill is what the guest sees. Source tells whether the figures came from
// the backend or were rebuilt from this terminal's rounds.
type Bill struct {
	Source      string      `json:"source"`
	SessionID   string      `json:"sessionId,omitempty"`
	TableNumber string      `json:"tableNumber,omitempty"`
	BillNumber  string      `json:"billNumber,omitempty"`
	Items       []BillLine  `json:"items"`
	Rounds      []BillRound `json:"rounds"`
	Subtotal    float64     `json:"subtotal"`
	TaxRate     float64     `json:"taxRate"`
	TaxAmount   float64     `json:"taxAmount"`
	Total       float64     `json:"total"`
	Currency    string      `json:"currency"`
	Warning     string      `json:"warning,omitempty"`
}

// ComputeBill prefers a remote bill with items and otherwise aggregates the
// local rounds. ErrNoItems means neither source has anything to show.
func ComputeBill(remote *backend.Bill, orders []LocalOrder, policy BillPolicy) (Bill, error) {
	policy = policy.withDefaults()

	if remote != nil && len(remote.Items) > 0 {
		return remoteBill(remote, policy), nil
	}

	bill, ok := localBill(orders, policy)
	if !ok {
		return Bill{}, ErrNoItems
	}
	return bill, nil
}

func remoteBill(remote *backend.Bill, policy BillPolicy) Bill {
	lines := make([]BillLine, 0, len(remote.Items))
	for _, item := range remote.Items {
		round := item.Round
		if round <= 0 {
			round = 1
		}
		lines = append(lines, BillLine{
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
			Round:      round,
		})
	}

	currency := remote.Currency
	if currency == "" {
		currency = policy.Currency
	}

	return Bill{
		Source:      BillSourceRemote,
		SessionID:   string(remote.SessionID),
		TableNumber: string(remote.TableNumber),
		BillNumber:  remote.BillNumber,
		Items:       lines,
		Rounds:      GroupByRound(lines),
		Subtotal:    remote.Subtotal,
		TaxRate:     remote.TaxRate,
		TaxAmount:   remote.TaxAmount,
		Total:       remote.Total,
		Currency:    currency,
	}
}

func localBill(orders []LocalOrder, policy BillPolicy) (Bill, bool) {
	subtotal := decimal.Zero
	var lines []BillLine
	var sessionID string
	for _, o := range orders {
		if sessionID == "" {
			sessionID = o.SessionID
		}
		subtotal = subtotal.Add(money(o.Subtotal))
		for _, item := range o.Items {
			lines = append(lines, BillLine{
				Name:       item.Name,
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
				TotalPrice: item.TotalPrice,
				Round:      o.Round,
			})
		}
	}
	if len(lines) == 0 {
		return Bill{}, false
	}

	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(money(policy.TaxRate)).Round(2)

	return Bill{
		Source:    BillSourceLocal,
		SessionID: sessionID,
		Items:     lines,
		Rounds:    GroupByRound(lines),
		Subtotal:  toAmount(subtotal),
		TaxRate:   policy.TaxRate,
		TaxAmount: toAmount(tax),
		Total:     toAmount(subtotal.Add(tax)),
		Currency:  policy.Currency,
	}, true
}

// GroupByRound buckets lines by round in ascending order, keeping the
// insertion order of the lines inside each round.
func GroupByRound(lines []BillLine) []BillRound {
	index := map[int]int{}
	var rounds []BillRound
	for _, line := range lines {
		round := line.Round
		if round <= 0 {
			round = 1
		}
		pos, ok := index[round]
		if !ok {
			pos = len(rounds)
			index[round] = pos
			rounds = append(rounds, BillRound{Round: round})
		}
		rounds[pos].Items = append(rounds[pos].Items, line)
	}

	for i := range rounds {
		sum := decimal.Zero
		for _, line := range rounds[i].Items {
			sum = sum.Add(money(line.TotalPrice))
		}
		rounds[i].Subtotal = toAmount(sum)
	}

	sort.SliceStable(rounds, func(i, j int) bool {
		return rounds[i].Round < rounds[j].Round
	})
	return rounds
}
