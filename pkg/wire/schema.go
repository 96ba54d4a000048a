// Package wire defines the protocol's typed message schemas and the generic
// codec and signing routines that operate on them.
//
// Every request/response pair exchanged between members, the group authority
// and the ledger authority is declared here once: its request fields, its
// response fields, and its named signature formats. A signature format is an
// ordered list of field names whose string forms are concatenated and signed
// together; the order is part of the contract and is never transmitted.
// Signature formats are keyed by name rather than by message kind because one
// message may carry several independent signatures authored by different
// parties over different subsets of fields. That is what lets the join and
// UOMe protocols chain signatures without a bespoke structure per step.
package wire

// Kind identifies one protocol message (and its route name on the wire).
type Kind string

const (
	KindRegisterGroup Kind = "register-group"
	KindInvite        Kind = "invite"
	KindJoin          Kind = "join"
	KindConfirmJoin   Kind = "confirm-join"
	KindMainJoin      Kind = "main-join"
	KindIssue         Kind = "issue"
	KindConfirm       Kind = "confirm"
	KindAccept        Kind = "accept"
	KindCancel        Kind = "cancel"
	KindPending       Kind = "pending"
	KindTotals        Kind = "totals"
)

// Dir selects which declared field set of a kind a record carries.
type Dir int

const (
	Request Dir = iota
	Response
)

func (d Dir) String() string {
	if d == Request {
		return "request"
	}
	return "response"
}

// FieldType is the declared wire type of one message field.
type FieldType int

const (
	// TypeString is UTF-8 text: identities, uuids, descriptions, secret codes.
	TypeString FieldType = iota
	// TypeInt is a signed 64-bit integer carried as a JSON number and signed
	// as decimal text.
	TypeInt
	// TypeBytes is binary data (signatures) carried as base64 text.
	TypeBytes
	// TypeUOMeEntries is a list of pending-UOMe records (response only).
	TypeUOMeEntries
	// TypeSettlementEntries is a list of settlement records (response only).
	TypeSettlementEntries
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeBytes:
		return "bytes"
	case TypeUOMeEntries:
		return "uome entries"
	case TypeSettlementEntries:
		return "settlement entries"
	default:
		return "unknown"
	}
}

// Field declares one named, typed message field.
type Field struct {
	Name string
	Type FieldType
}

// Schema declares the request fields, response fields and signature formats
// of one message kind.
type Schema struct {
	Kind       Kind
	Request    []Field
	Response   []Field
	Signatures map[string][]string
}

// Signature names used across the protocol. A name identifies the author
// role of a signature, not the message it travels in.
const (
	SigUser    = "user"    // a member signing with their own key
	SigInviter = "inviter" // the inviting member's attestation
	SigGroup   = "group"   // the group authority
	SigMain    = "main"    // the ledger authority
)

// schemas is the single constant table every codec and signing routine
// consults. Field order inside a signature format is load-bearing.
var schemas = map[Kind]Schema{
	KindRegisterGroup: {
		Kind: KindRegisterGroup,
		Request: []Field{
			{"group_name", TypeString},
			{"group_key", TypeString},
			{"group_signature", TypeBytes},
		},
		Response: []Field{
			{"group_uuid", TypeString},
			{"main_signature", TypeBytes},
		},
		Signatures: map[string][]string{
			SigGroup: {"group_name", "group_key"},
			SigMain:  {"group_uuid", "group_name", "group_key"},
		},
	},
	KindInvite: {
		Kind: KindInvite,
		Request: []Field{
			{"group_uuid", TypeString},
			{"inviter", TypeString},
			{"invitee", TypeString},
			{"invitee_email", TypeString},
			{"inviter_signature", TypeBytes},
		},
		Response: []Field{
			{"group_signature", TypeBytes},
		},
		Signatures: map[string][]string{
			SigInviter: {"group_uuid", "inviter", "invitee", "invitee_email"},
			SigGroup:   {"group_uuid", "inviter", "invitee", "invitee_email"},
		},
	},
	KindJoin: {
		Kind: KindJoin,
		Request: []Field{
			{"group_uuid", TypeString},
			{"user", TypeString},
			{"secret_code", TypeString},
			{"user_signature", TypeBytes},
		},
		Response: []Field{
			{"inviter", TypeString},
			{"invitee_email", TypeString},
			{"inviter_signature", TypeBytes},
			{"group_signature", TypeBytes},
		},
		Signatures: map[string][]string{
			SigUser: {"group_uuid", "user", "secret_code"},
			// The group authority countersigns the inviter's original
			// attestation, chaining the two signatures.
			SigGroup: {"inviter_signature"},
		},
	},
	KindConfirmJoin: {
		Kind: KindConfirmJoin,
		Request: []Field{
			{"group_uuid", TypeString},
			{"user", TypeString},
			{"group_signature", TypeBytes},
			{"user_signature", TypeBytes},
		},
		Response: []Field{
			{"group_uuid", TypeString},
			{"user", TypeString},
			{"main_signature", TypeBytes},
		},
		Signatures: map[string][]string{
			SigUser: {"group_uuid", "user", "group_signature"},
			SigMain: {"group_uuid", "user"},
		},
	},
	KindMainJoin: {
		Kind: KindMainJoin,
		Request: []Field{
			{"group_uuid", TypeString},
			{"user", TypeString},
			{"group_signature", TypeBytes},
		},
		Response: []Field{
			{"group_uuid", TypeString},
			{"user", TypeString},
			{"main_signature", TypeBytes},
		},
		Signatures: map[string][]string{
			SigGroup: {"group_uuid", "user"},
			SigMain:  {"group_uuid", "user"},
		},
	},
	KindIssue: {
		Kind: KindIssue,
		Request: []Field{
			{"group_uuid", TypeString},
			{"lender", TypeString},
			{"borrower", TypeString},
			{"value", TypeInt},
			{"description", TypeString},
			{"user_signature", TypeBytes},
		},
		Response: []Field{
			{"uome_uuid", TypeString},
			{"main_signature", TypeBytes},
		},
		Signatures: map[string][]string{
			// The uuid does not exist yet at issue time, so it cannot be in
			// the user signature. The main signature binds the server-chosen
			// uuid to the original terms.
			SigUser: {"group_uuid", "lender", "borrower", "value", "description"},
			SigMain: {"uome_uuid", "group_uuid", "lender", "borrower", "value", "description"},
		},
	},
	KindConfirm: {
		Kind: KindConfirm,
		Request: []Field{
			{"group_uuid", TypeString},
			{"lender", TypeString},
			{"uome_uuid", TypeString},
			{"user_signature", TypeBytes},
		},
		Response: []Field{
			{"main_signature", TypeBytes},
		},
		Signatures: map[string][]string{
			// Covers the stored terms plus the now-known uuid; the ledger
			// supplies borrower/value/description from its own record.
			SigUser: {"uome_uuid", "group_uuid", "lender", "borrower", "value", "description"},
			SigMain: {"group_uuid", "uome_uuid"},
		},
	},
	KindAccept: {
		Kind: KindAccept,
		Request: []Field{
			{"group_uuid", TypeString},
			{"borrower", TypeString},
			{"uome_uuid", TypeString},
			{"user_signature", TypeBytes},
		},
		Response: []Field{
			{"main_signature", TypeBytes},
		},
		Signatures: map[string][]string{
			SigUser: {"group_uuid", "lender", "borrower", "value", "description", "uome_uuid"},
			SigMain: {"group_uuid", "uome_uuid"},
		},
	},
	KindCancel: {
		Kind: KindCancel,
		Request: []Field{
			{"group_uuid", TypeString},
			{"lender", TypeString},
			{"uome_uuid", TypeString},
			{"user_signature", TypeBytes},
		},
		Response: []Field{
			{"main_signature", TypeBytes},
		},
		Signatures: map[string][]string{
			SigUser: {"group_uuid", "lender", "uome_uuid"},
			SigMain: {"group_uuid", "uome_uuid"},
		},
	},
	KindPending: {
		Kind: KindPending,
		Request: []Field{
			{"group_uuid", TypeString},
			{"user", TypeString},
			{"user_signature", TypeBytes},
		},
		Response: []Field{
			{"waiting_on_others", TypeUOMeEntries},
			{"waiting_on_user", TypeUOMeEntries},
		},
		Signatures: map[string][]string{
			SigUser: {"group_uuid", "user"},
		},
	},
	KindTotals: {
		Kind: KindTotals,
		Request: []Field{
			{"group_uuid", TypeString},
			{"user", TypeString},
			{"user_signature", TypeBytes},
		},
		Response: []Field{
			{"balance", TypeInt},
			{"settlements", TypeSettlementEntries},
		},
		Signatures: map[string][]string{
			SigUser: {"group_uuid", "user"},
		},
	},
}

// SchemaFor returns the declared schema for a kind.
func SchemaFor(kind Kind) (Schema, error) {
	s, ok := schemas[kind]
	if !ok {
		return Schema{}, ErrUnknownKind
	}
	return s, nil
}

func (s Schema) fields(dir Dir) []Field {
	if dir == Request {
		return s.Request
	}
	return s.Response
}
