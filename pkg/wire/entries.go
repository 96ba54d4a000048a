package wire

import "github.com/aussiebroadwan/uome/pkg/cryptox"

// UOMeEntry is one element of a pending-query response. It carries every
// field the requester needs to re-verify the issuer signature locally
// before trusting the amount shown.
type UOMeEntry struct {
	UOMeUUID        string           `json:"uome_uuid"`
	GroupUUID       string           `json:"group_uuid"`
	Lender          cryptox.Identity `json:"lender"`
	Borrower        cryptox.Identity `json:"borrower"`
	Value           int64            `json:"value"`
	Description     string           `json:"description"`
	IssuerSignature []byte           `json:"issuer_signature"`
}

// SettlementEntry is one suggested payment of a totals response: who the
// requester should pay or be paid by, and how much. Settlements are derived
// from net balances, deliberately severed from the UOMes that produced them.
type SettlementEntry struct {
	Counterparty cryptox.Identity `json:"counterparty"`
	Value        int64            `json:"value"`
}
