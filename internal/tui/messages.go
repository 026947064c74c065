package tui

import (
	"github.com/Veraticus/plaid-viewer/internal/connector"
	"github.com/Veraticus/plaid-viewer/internal/model"
)

type linkTokenMsg struct {
	result connector.Result[string]
}

type exchangeMsg struct {
	result connector.Result[string]
}

type transactionsMsg struct {
	result connector.Result[model.Table]
}

type sandboxTokenMsg struct {
	err   error
	token string
}
