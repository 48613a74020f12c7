package entity

import (
	"encoding/json"
	"time"
)

// Action is the kind of a logged event. Values are the ones the backend
// already stores in logs_acesso.acao.
type Action string

const (
	ActionLogin            Action = "LOGIN"
	ActionLogout           Action = "LOGOUT"
	ActionChangePassword   Action = "TROCA_SENHA"
	ActionRecoverPassword  Action = "RECUPERACAO_SENHA"
	ActionViewReport       Action = "VISUALIZAR_RELATORIO"
	ActionCreateReport     Action = "CRIAR_RELATORIO"
	ActionUpdateReport     Action = "ATUALIZAR_RELATORIO"
	ActionDeactivateReport Action = "EXCLUIR_RELATORIO"
	ActionGrantPermission  Action = "CONCEDER_PERMISSAO"
	ActionRevokePermission Action = "REMOVER_PERMISSAO"
	ActionCreateUser       Action = "CRIAR_USUARIO"
	ActionUpdateUser       Action = "ATUALIZAR_USUARIO"
	ActionDeactivateUser   Action = "DESATIVAR_USUARIO"
	ActionResetPassword    Action = "RESETAR_SENHA"
)

// UnknownOrigin is recorded when the origin address cannot be resolved.
const UnknownOrigin = "Desconhecido"

// Entry is an append-only row of `logs_acesso`.
type Entry struct {
	ID        string          `db:"id" json:"id"`
	ActorID   *string         `db:"usuario_id" json:"usuario_id"`
	ReportID  *string         `db:"relatorio_id" json:"relatorio_id"`
	Action    Action          `db:"acao" json:"acao"`
	Details   json.RawMessage `db:"detalhes" json:"detalhes"`
	Origin    string          `db:"ip_address" json:"ip_address"`
	Timestamp time.Time       `db:"data_hora" json:"data_hora"`
}

// EntryView is an entry joined with the actor and report it references.
type EntryView struct {
	Entry
	ActorName   *string `db:"usuario_nome" json:"usuario_nome"`
	ActorEmail  *string `db:"usuario_email" json:"usuario_email"`
	ReportTitle *string `db:"relatorio_titulo" json:"relatorio_titulo"`
}
