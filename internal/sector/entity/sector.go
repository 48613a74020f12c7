package entity

// Sector is a row in `setores`. Grants and users reference it by name.
type Sector struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"nome" json:"nome"`
	Active bool   `db:"ativo" json:"ativo"`
}
