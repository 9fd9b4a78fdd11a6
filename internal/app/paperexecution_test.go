package app

import (
	"context"
	"testing"

	"github.com/cloddsbot/core/internal/domain"
)

func TestPaperExecutionAdapterFillsBuyAndSell(t *testing.T) {
	adapter := newPaperExecutionAdapter(discardLogger())

	buy, err := adapter.BuyLimit(context.Background(), domain.OrderRequest{
		Venue: "kalshi", TokenID: "tok-1", Side: domain.SideBuy, Price: 0.4, Size: 10,
	})
	if err != nil {
		t.Fatalf("BuyLimit: %v", err)
	}
	if !buy.Success || buy.OrderID == "" || buy.FilledSize != 10 || buy.AvgFillPrice != 0.4 {
		t.Fatalf("unexpected buy response: %+v", buy)
	}

	sell, err := adapter.SellLimit(context.Background(), domain.OrderRequest{
		Venue: "kalshi", TokenID: "tok-1", Side: domain.SideSell, Price: 0.6, Size: 5,
	})
	if err != nil {
		t.Fatalf("SellLimit: %v", err)
	}
	if sell.OrderID == buy.OrderID {
		t.Fatal("expected distinct order ids across fills")
	}
}

func TestPaperExecutionAdapterCancelIsNoop(t *testing.T) {
	adapter := newPaperExecutionAdapter(discardLogger())
	if err := adapter.CancelOrder(context.Background(), "kalshi", "order-1"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
}
