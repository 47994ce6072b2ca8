package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/etianguis/checkout/internal/domain"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333;">
  <h2>{{.StoreName}}</h2>
  {{if .Manual}}
  <p>Recibimos tu pedido y lo estamos procesando. Te enviaremos la confirmación definitiva en cuanto esté lista.</p>
  <p>Referencia: <strong>{{.Reference}}</strong></p>
  {{else}}
  <p>¡Gracias por tu compra! Tu pedido <strong>{{.Reference}}</strong> está confirmado.</p>
  {{end}}
  <table style="border-collapse: collapse; width: 100%;">
    {{range .Items}}
    <tr>
      <td style="padding: 4px 8px;">{{.Title}}</td>
      <td style="padding: 4px 8px; text-align: center;">x{{.Quantity}}</td>
      <td style="padding: 4px 8px; text-align: right;">{{.Price}}</td>
    </tr>
    {{end}}
  </table>
  <p style="text-align: right;"><strong>Total: {{.Total}}</strong></p>
  {{if .Address}}
  <p>Enviaremos tu pedido a:<br>
  {{.Address.FullName}}<br>
  {{.Address.AddressLine}}, {{.Address.City}}, {{.Address.State}} {{.Address.PostalCode}}</p>
  {{end}}
</body>
</html>`))

type confirmationData struct {
	StoreName string
	Reference string
	Manual    bool
	Items     []confirmationItem
	Total     string
	Address   *domain.Address
}

type confirmationItem struct {
	Title    string
	Quantity int
	Price    string
}

// pesos formats a centavo amount as MXN currency text.
func pesos(cents int64) string {
	return fmt.Sprintf("$%d.%02d MXN", cents/100, cents%100)
}

func renderConfirmation(storeName string, order *domain.Order) (string, error) {
	data := confirmationData{
		StoreName: storeName,
		Reference: order.ID,
		Manual:    order.IsSynthetic(),
		Address:   order.ShippingAddress,
	}

	var total int64
	for _, item := range order.Items {
		lineTotal := item.UnitPrice * int64(item.Quantity)
		total += lineTotal
		data.Items = append(data.Items, confirmationItem{
			Title:    item.Title,
			Quantity: item.Quantity,
			Price:    pesos(lineTotal),
		})
	}
	data.Total = pesos(total)

	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
