package entity

// Type specificity tiers used by the overlap merger when two engines
// disagree about what an occurrence is. Deterministic identifier
// patterns outrank contextual classifier labels.
const (
	priorityDeterministic = 2
	priorityContextual    = 1
)

var defaultPriority = map[Type]int{
	TypeSSN:         priorityDeterministic,
	TypeAadhaar:     priorityDeterministic,
	TypeCreditCard:  priorityDeterministic,
	TypeEmail:       priorityDeterministic,
	TypePhone:       priorityDeterministic,
	TypeIPAddress:   priorityDeterministic,
	TypePANCard:     priorityDeterministic,
	TypePassport:    priorityDeterministic,
	TypeURL:         priorityDeterministic,
	TypeDateOfBirth: priorityDeterministic,
	TypeZipCode:     priorityDeterministic,

	TypePersonName:   priorityContextual,
	TypeAddress:      priorityContextual,
	TypeLocation:     priorityContextual,
	TypeOrganization: priorityContextual,
	TypeDate:         priorityContextual,
	TypeFinancial:    priorityContextual,
	TypeNationality:  priorityContextual,
	TypeFacility:     priorityContextual,
	TypeTime:         priorityContextual,
	TypeNumber:       priorityContextual,
	TypeEvent:        priorityContextual,
	TypeWorkOfArt:    priorityContextual,
	TypeProduct:      priorityContextual,
}

// Priority returns the merge priority for a type. Overrides, when
// present, take precedence over the built-in table. Unknown types
// rank below everything else.
func Priority(t Type, overrides map[string]int) int {
	if overrides != nil {
		if p, ok := overrides[string(t)]; ok {
			return p
		}
	}
	if p, ok := defaultPriority[t]; ok {
		return p
	}
	return 0
}
