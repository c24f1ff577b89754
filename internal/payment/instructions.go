package payment

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Instructions tell a customer how to settle a pay-later order.
type Instructions struct {
	Method      string          `json:"method"`
	IBAN        string          `json:"iban,omitempty"`
	Beneficiary string          `json:"beneficiary,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Reference   string          `json:"reference"`
	Steps       []string        `json:"steps"`
}

var InstructionMap = map[string][]string{
	MethodBankTransfer: {
		"Open your banking app or online banking",
		"Create a new SEPA transfer to {{beneficiary}}",
		"Use IBAN {{iban}}",
		"Transfer exactly {{amount}} {{currency}}",
		"Put {{reference}} in the payment reference so we can match your order",
		"Your order is confirmed once the transfer is received",
	},
	MethodAfterService: {
		"No payment is needed now",
		"You will receive an invoice of {{amount}} {{currency}} once the service is delivered",
		"Please mention {{reference}} when you pay the invoice",
	},
}

func GetInstructions(method string) []string {
	if steps, ok := InstructionMap[method]; ok {
		return steps
	}
	return []string{"Follow the instructions on the payment page"}
}

type InstructionVars map[string]string

func InjectVariables(steps []string, vars InstructionVars) []string {
	result := make([]string, 0, len(steps))
	for _, step := range steps {
		updated := step
		for key, value := range vars {
			updated = strings.ReplaceAll(updated, "{{"+key+"}}", value)
		}
		result = append(result, updated)
	}
	return result
}

// BuildInstructions renders the pay-later steps for an order.
func BuildInstructions(method, iban, beneficiary, currency, orderNumber string, amount decimal.Decimal) *Instructions {
	vars := InstructionVars{
		"iban":        iban,
		"beneficiary": beneficiary,
		"amount":      amount.StringFixed(2),
		"currency":    currency,
		"reference":   orderNumber,
	}
	in := &Instructions{
		Method:    method,
		Amount:    amount,
		Currency:  currency,
		Reference: orderNumber,
		Steps:     InjectVariables(GetInstructions(method), vars),
	}
	if method == MethodBankTransfer {
		in.IBAN = iban
		in.Beneficiary = beneficiary
	}
	return in
}
