package models

// SubsidiaryRelation is a directed parent to child edge between organisations.
type SubsidiaryRelation struct {
	ParentCode string `json:"parent_org_code"`
	ChildCode  string `json:"child_org_code"`
}

// Subsidiary is a direct child enriched with its reconciled display name.
type Subsidiary struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
