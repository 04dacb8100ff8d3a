package conversation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseModelReplyStrictJSON(t *testing.T) {
	raw := `{"respuesta":"¡Anotado!","estado":"IN_PROGRESS","pedido":{"entrega":"retiro","items":[{"descripcion":"empanada de carne","cantidad":12,"precio_unitario":350,"total":4200}],"total":4200}}`

	reply, err := ParseModelReply(raw)
	if err != nil {
		t.Fatalf("ParseModelReply: %v", err)
	}
	if reply.Response != "¡Anotado!" {
		t.Fatalf("respuesta = %q", reply.Response)
	}
	if reply.Status != "IN_PROGRESS" {
		t.Fatalf("estado = %q", reply.Status)
	}
	if len(reply.Order.Items) != 1 {
		t.Fatalf("items = %d", len(reply.Order.Items))
	}
	if !reply.Order.Items[0].Quantity.Decimal().Equal(decimal.NewFromInt(12)) {
		t.Fatalf("cantidad = %s", reply.Order.Items[0].Quantity.Decimal())
	}
}

func TestParseModelReplyExtractsBracedJSON(t *testing.T) {
	raw := "Claro, acá va:\n```json\n" +
		`{"respuesta":"ok","estado":"OPEN","pedido":{"items":[]}}` +
		"\n```\n¡Saludos!"

	reply, err := ParseModelReply(raw)
	if err != nil {
		t.Fatalf("ParseModelReply: %v", err)
	}
	if reply.Response != "ok" {
		t.Fatalf("respuesta = %q", reply.Response)
	}
}

func TestParseModelReplyStringAmounts(t *testing.T) {
	raw := `{"respuesta":"ok","estado":"OPEN","pedido":{"items":[{"descripcion":"x","cantidad":"2","precio_unitario":"$ 1.500,50","total":"3.001"}],"total":"$3.001"}}`

	reply, err := ParseModelReply(raw)
	if err != nil {
		t.Fatalf("ParseModelReply: %v", err)
	}
	item := reply.Order.Items[0]
	if !item.UnitPrice.Decimal().Equal(decimal.RequireFromString("1500.50")) {
		t.Fatalf("precio_unitario = %s", item.UnitPrice.Decimal())
	}
	if !reply.Order.GrandTotal.Decimal().Equal(decimal.NewFromInt(3001)) {
		t.Fatalf("total = %s", reply.Order.GrandTotal.Decimal())
	}
}

func TestParseModelReplyRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "no hay json acá", "{rotito"} {
		if _, err := ParseModelReply(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
