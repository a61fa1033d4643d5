package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/users"
	"go.uber.org/zap"
)

type Confirmation struct {
	To      string
	Subject string
	Body    string
}

// Compose builds the confirmation message for a placed order.
func Compose(u users.User, p orders.OrderPlacedPayload, company, currency string) Confirmation {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", u.FirstName)
	fmt.Fprintf(&b, "Thank you for your order #%s.\n", p.OrderNumber)
	fmt.Fprintf(&b, "Total Amount: %s%s\n\n", currency, p.TotalAmount.StringFixed(2))
	b.WriteString("We will notify you once your order is shipped.\n\n")
	fmt.Fprintf(&b, "Best regards,\n%s", company)

	return Confirmation{
		To:      u.Email,
		Subject: "Order Confirmation - " + p.OrderNumber,
		Body:    b.String(),
	}
}

type Dispatcher interface {
	Dispatch(ctx context.Context, c Confirmation) error
}

// LogDispatcher writes confirmations to the log instead of sending mail.
type LogDispatcher struct{ Log *zap.Logger }

func (d LogDispatcher) Dispatch(_ context.Context, c Confirmation) error {
	d.Log.Info("order confirmation",
		zap.String("to", c.To),
		zap.String("subject", c.Subject),
		zap.String("body", c.Body))
	return nil
}
