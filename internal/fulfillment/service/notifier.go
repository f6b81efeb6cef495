package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	orderdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/order/domain"
)

const notifyTimeout = 10 * time.Second

// notify sends a customer email in the background. Delivery of the order
// never depends on the email going out.
func (s *Service) notify(order *orderdomain.Order, template string, payload *string) {
	if s.email == nil || strings.TrimSpace(order.Email) == "" {
		return
	}

	to := order.Email
	data := map[string]any{
		"user_name":    recipientName(order.Email),
		"order_number": snowflake.ID(order.ID).String(),
		"item_name":    order.Kind,
	}
	if item, err := s.catalog.FindByID(context.Background(), s.db, order.ItemID); err == nil && item != nil {
		data["item_name"] = item.Name
	}
	if payload != nil {
		data["code"] = *payload
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.email.SendTemplate(ctx, []string{to}, template, data); err != nil {
			s.log.Warn("customer notification failed",
				zap.String("template", template),
				zap.Int64("order_id", order.ID),
				zap.Error(err))
		}
	}()
}

func recipientName(emailAddr string) string {
	if i := strings.Index(emailAddr, "@"); i > 0 {
		return emailAddr[:i]
	}
	return emailAddr
}
