package service

import (
	"context"
	"log"
)

// Delivery seam for verification codes. The production implementation talks
// to the SMS provider; the gateway only depends on this interface.
type CodeSender interface {
	Send(ctx context.Context, phone, code string) error
}

// Development sender that prints codes instead of texting them.
type LogCodeSender struct{}

func (LogCodeSender) Send(ctx context.Context, phone, code string) error {
	log.Printf("Verification code for %s: %s", phone, code)
	return nil
}
