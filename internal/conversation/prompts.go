package conversation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/franmoretti/tiendabot-backend/pkg/enums"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

// systemPrompt fixes the JSON contract the model must answer with. The
// figures it emits are treated as a proposal only; everything monetary is
// recomputed server side before the reply goes out.
const systemPrompt = `Sos el asistente de ventas de una tienda en Córdoba, Argentina.
Atendés pedidos por chat en español, con tono cordial y directo.

Respondé SIEMPRE con un único objeto JSON, sin texto fuera del JSON, con esta forma exacta:
{
  "respuesta": "texto para el cliente",
  "estado": "OPEN | IN_PROGRESS | COMPLETED | CANCELLED",
  "pedido": {
    "entrega": "retiro | envío | ",
    "direccion": "dirección del cliente si corresponde envío",
    "items": [
      {"descripcion": "producto", "cantidad": 1, "precio_unitario": 0, "total": 0}
    ],
    "total": 0,
    "fecha": "YYYY-MM-DD",
    "hora": "HH:MM"
  }
}

Reglas:
- Usá solamente productos y precios de la lista de catálogo provista.
- Si el cliente pide envío a domicilio, pedile la dirección completa.
- No inventes precios ni descuentos.
- "estado" pasa a COMPLETED solo cuando el cliente confirma el pedido completo.
- "estado" pasa a CANCELLED solo si el cliente cancela explícitamente.`

// catalogPromptSection renders the active catalog for the model.
func catalogPromptSection(lines []string) string {
	if len(lines) == 0 {
		return "Catálogo: (sin productos cargados por el momento)"
	}
	var b strings.Builder
	b.WriteString("Catálogo vigente (precios en pesos):\n")
	for _, line := range lines {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// correctionPrompt embeds the authoritative figures and forbids the model
// from re-deriving them. Sent as a system turn during the repair loop.
func correctionPrompt(order types.OrderDraft) string {
	var b strings.Builder
	b.WriteString("CORRECCIÓN: los montos que informaste no coinciden con los precios reales. ")
	b.WriteString("Usá EXACTAMENTE estos valores, sin recalcular nada:\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s: cantidad %s, precio unitario $%s, total $%s\n",
			item.Description,
			item.Quantity.String(),
			formatAmount(item.UnitPrice),
			formatAmount(item.LineTotal))
	}
	fmt.Fprintf(&b, "Total del pedido: $%s\n", formatAmount(order.GrandTotal))
	b.WriteString("Repetí tu respuesta JSON con estos montos tal cual figuran acá.")
	return b.String()
}

// fallbackSummary is the deterministic reply used when the repair loop
// exhausts its attempts: the corrected order is narrated directly, leaving
// the model out of the money path entirely.
func fallbackSummary(order types.OrderDraft) string {
	var b strings.Builder
	b.WriteString("Te confirmo tu pedido:\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s x%s: $%s\n", item.Description, item.Quantity.String(), formatAmount(item.LineTotal))
	}
	fmt.Fprintf(&b, "Total: $%s", formatAmount(order.GrandTotal))
	if order.Mode == enums.OrderModeDelivery && !order.Address.IsZero() {
		fmt.Fprintf(&b, "\nEnvío a: %s", order.Address.Text())
	}
	if order.ScheduledDate != "" && order.ScheduledTime != "" {
		fmt.Fprintf(&b, "\nPara el %s a las %s", order.ScheduledDate, order.ScheduledTime)
	}
	b.WriteString("\n¿Está todo bien así?")
	return b.String()
}

const (
	// stallReply goes out when the model call fails or times out; the turn
	// still completes and the customer is asked to resend.
	stallReply = "Disculpá, tuve un problema para procesar tu mensaje. ¿Me lo repetís?"

	// addressRetypeReply is sent when the geocoder could not pin the
	// address precisely enough to price the delivery.
	addressRetypeReply = "No pude ubicar bien esa dirección. ¿Me la escribís de nuevo con calle, número y barrio?"

	cancelReply  = "Listo, cancelé tu pedido. ¡Cuando quieras volvés a escribirnos!"
	confirmReply = "¡Pedido confirmado! Gracias por tu compra."
)

func formatAmount(value decimal.Decimal) string {
	return value.StringFixed(2)
}
