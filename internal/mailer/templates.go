package mailer

import (
	"fmt"
	"strings"
)

func OrderConfirmation(to, customerName, orderNumber, amount, currency, method string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", customerName)
	fmt.Fprintf(&b, "Thank you for your order %s.\n", orderNumber)
	fmt.Fprintf(&b, "Amount due: %s %s\n", amount, currency)
	fmt.Fprintf(&b, "Payment method: %s\n\n", method)
	b.WriteString("We will get in touch shortly to plan the work.\n\nKoubyte")
	return Message{
		To:      []string{to},
		Subject: "Order confirmation " + orderNumber,
		Body:    b.String(),
	}
}

func ContactAlert(to, name, email, subject, body string) Message {
	return Message{
		To:      []string{to},
		Subject: "New contact message: " + subject,
		Body:    fmt.Sprintf("From: %s <%s>\n\n%s", name, email, body),
	}
}

func QuoteRequested(to, name, email, estimate string) Message {
	return Message{
		To:      []string{to},
		Subject: "New quote request from " + name,
		Body:    fmt.Sprintf("%s <%s> requested a quote.\nEstimated price: %s", name, email, estimate),
	}
}
