package entity

import "time"

// Report is a row in `relatorios`. Rows are soft-deactivated, never deleted.
type Report struct {
	ID              string    `db:"id" json:"id"`
	Title           string    `db:"titulo" json:"titulo"`
	Description     *string   `db:"descricao" json:"descricao"`
	EmbedID         string    `db:"report_id_powerbi" json:"report_id_powerbi"`
	Category        *string   `db:"categoria" json:"categoria"`
	EmbedFragment   string    `db:"iframe_completo" json:"iframe_completo"`
	DataSource      *string   `db:"data_source" json:"data_source"`
	UpdateFrequency *string   `db:"update_frequency" json:"update_frequency"`
	Owner           *string   `db:"responsavel" json:"responsavel"`
	CreatedBy       *string   `db:"criado_por" json:"criado_por,omitempty"`
	Active          bool      `db:"ativo" json:"ativo"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// ReportInput carries the editable fields. On update nil fields are kept.
type ReportInput struct {
	Title           *string `json:"titulo"`
	Description     *string `json:"descricao"`
	Category        *string `json:"categoria"`
	EmbedFragment   *string `json:"iframe_completo"`
	DataSource      *string `json:"data_source"`
	UpdateFrequency *string `json:"update_frequency"`
	Owner           *string `json:"responsavel"`
	Active          *bool   `json:"ativo"`
}

// Grant is a row in `permissoes`: exactly one of UserID and Sector is set.
type Grant struct {
	ID        string    `db:"id" json:"id"`
	ReportID  string    `db:"relatorio_id" json:"relatorio_id"`
	UserID    *string   `db:"usuario_id" json:"usuario_id"`
	Sector    *string   `db:"setor" json:"setor"`
	GrantedBy *string   `db:"concedido_por" json:"concedido_por"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GrantView is a Grant joined with the grantee's profile, when it is a user.
type GrantView struct {
	Grant
	UserName   *string `db:"usuario_nome" json:"usuario_nome"`
	UserEmail  *string `db:"usuario_email" json:"usuario_email"`
	UserSector *string `db:"usuario_setor" json:"usuario_setor"`
}
