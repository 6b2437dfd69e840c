package policy

import (
	"sort"

	"github.com/straye-as/crm-api/internal/domain"
)

// Field is a writable attribute, named as it appears in request payloads
type Field string

const (
	FieldUsername         Field = "username"
	FieldFirstName        Field = "firstName"
	FieldLastName         Field = "lastName"
	FieldEmail            Field = "email"
	FieldPhone            Field = "phone"
	FieldMobile           Field = "mobile"
	FieldCompanyName      Field = "companyName"
	FieldRole             Field = "role"
	FieldSalesContactID   Field = "salesContactId"
	FieldSupportContactID Field = "supportContactId"
	FieldClientID         Field = "clientId"
	FieldContractID       Field = "contractId"
	FieldAmount           Field = "amount"
	FieldPaymentDue       Field = "paymentDue"
	FieldSigned           Field = "signed"
	FieldTitle            Field = "title"
	FieldNotes            Field = "notes"
	FieldAttendees        Field = "attendees"
	FieldStatus           Field = "status"
	FieldEventDate        Field = "eventDate"
	FieldFile             Field = "file"
)

// FieldSet is an immutable allow-set of fields
type FieldSet struct {
	fields map[Field]struct{}
}

func newFieldSet(fields ...Field) FieldSet {
	m := make(map[Field]struct{}, len(fields))
	for _, f := range fields {
		m[f] = struct{}{}
	}
	return FieldSet{fields: m}
}

// union returns a new set holding the fields of s and extra
func (s FieldSet) union(extra ...Field) FieldSet {
	all := s.Fields()
	return newFieldSet(append(all, extra...)...)
}

// Has reports whether f is writable
func (s FieldSet) Has(f Field) bool {
	_, ok := s.fields[f]
	return ok
}

// Allows is Has keyed by payload name, usable as a Strip callback
func (s FieldSet) Allows(name string) bool {
	return s.Has(Field(name))
}

// Len returns the number of fields in the set
func (s FieldSet) Len() int {
	return len(s.fields)
}

// Fields returns the fields in a stable order
func (s FieldSet) Fields() []Field {
	out := make([]Field, 0, len(s.fields))
	for f := range s.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var (
	clientProfileFields = newFieldSet(FieldFirstName, FieldLastName, FieldEmail, FieldPhone, FieldMobile, FieldCompanyName)
	clientContactFields = newFieldSet(FieldEmail, FieldPhone, FieldMobile)
	contractTermFields  = newFieldSet(FieldAmount, FieldPaymentDue, FieldSigned)
	eventDetailFields   = newFieldSet(FieldTitle, FieldNotes, FieldAttendees, FieldStatus, FieldEventDate)
	eventLinkFields     = newFieldSet(FieldSupportContactID, FieldContractID, FieldClientID)
	contractLinkFields  = newFieldSet(FieldSalesContactID, FieldClientID)
	clientOwnerFields   = newFieldSet(FieldSalesContactID)
	userCreateFields    = newFieldSet(FieldUsername, FieldFirstName, FieldLastName, FieldEmail, FieldRole)
	userUpdateFields    = newFieldSet(FieldFirstName, FieldLastName, FieldEmail)
	documentFields      = newFieldSet(FieldFile)
	noFields            = newFieldSet()
)

// Writable returns the fields a role may write on entity for op. The
// result is a fresh set; callers may keep it without affecting the table.
func Writable(role domain.Role, entity Entity, op Operation) FieldSet {
	ep, ok := entityPolicy(role, entity)
	if !ok {
		return newFieldSet()
	}
	set, ok := ep.Writable[op]
	if !ok {
		return newFieldSet()
	}
	return newFieldSet(set.Fields()...)
}
