package notification

import (
	"fmt"
	"strings"
	"text/template"

	"arrume_backend/internal/linkshortener"
	"arrume_backend/platform/phone"
	"arrume_backend/platform/sanitize"
)

// Lead is the requester data rendered into messages.
type Lead struct {
	Name         string
	Phone        string
	Email        string
	City         string
	Region       string
	Neighborhood string
	PostalCode   string
	ServiceKind  string
}

// Contact is a matched provider as shown to the requester.
type Contact struct {
	Name  string
	Phone string
}

const requesterTemplate = `A {{.Brand}}, por meio da plataforma {{.Platform}}, indica os seguintes contatos:
{{range .Contacts}}
{{.Position}}. {{.Name}} - {{if .Display}}{{.Display}}{{else}}(sem telefone){{end}}{{if .Link}}
{{.Link}}{{end}}
{{end}}
Boa sorte! Responda este número se quiser solicitar orçamento.`

const requesterNoMatchTemplate = `Olá {{.Name}}! A {{.Brand}}, por meio da plataforma {{.Platform}}, recebeu seu pedido, mas ainda não encontramos profissionais disponíveis na sua região.

Responda este número se quiser que a gente continue procurando.`

const providerTemplate = `{{.Brand}} (via {{.Platform}}) indica um novo cliente para contato:

Nome: {{.Lead.Name}}
Contato (WhatsApp): {{.Display}}
{{if .Lead.Email}}Email: {{.Lead.Email}}
{{end}}Cidade / UF: {{.Lead.City}}{{if .Lead.Region}} / {{.Lead.Region}}{{end}}
{{if .Lead.Neighborhood}}Bairro: {{.Lead.Neighborhood}}
{{end}}CEP: {{.Lead.PostalCode}}
Serviço solicitado: {{.Service}}
{{if .Link}}
Fale com o cliente: {{.Link}}
{{end}}
Por favor, entre em contato com o cliente o mais breve possível. Boa sorte!`

var (
	requesterTmpl        = template.Must(template.New("requester").Option("missingkey=zero").Parse(requesterTemplate))
	requesterNoMatchTmpl = template.Must(template.New("requester_no_match").Option("missingkey=zero").Parse(requesterNoMatchTemplate))
	providerTmpl         = template.Must(template.New("provider").Option("missingkey=zero").Parse(providerTemplate))
)

// ServiceLabel returns the human label for a service kind.
func ServiceLabel(kind string) string {
	switch strings.TrimSpace(kind) {
	case sanitize.ServiceReupholster:
		return "Reforma do meu Estofado"
	case sanitize.ServiceNew:
		return "Estofado Novo"
	case sanitize.ServiceBoth:
		return "Ambos / Não especificado"
	default:
		return "Não informado"
	}
}

// Composer builds notification targets carrying the brand names.
type Composer struct {
	brand    string
	platform string
}

// NewComposer creates a composer for the given brand and platform names.
func NewComposer(brand, platform string) Composer {
	return Composer{brand: brand, platform: platform}
}

type requesterContact struct {
	Position int
	Name     string
	Display  string
	Link     string
}

// ForRequester builds the message listing the matched providers. Each
// provider with a phone contributes one click-to-chat link, shortened at
// delivery time. With no providers the no-match message is used.
func (c Composer) ForRequester(lead Lead, contacts []Contact) Target {
	if len(contacts) == 0 {
		return Target{
			Audience: AudienceRequester,
			Name:     lead.Name,
			Phone:    lead.Phone,
			Compose: func([]string) (string, error) {
				return render(requesterNoMatchTmpl, map[string]any{
					"Brand":    c.brand,
					"Platform": c.platform,
					"Name":     firstName(lead.Name),
				})
			},
		}
	}

	links := make([]string, len(contacts))
	for i, contact := range contacts {
		greeting := fmt.Sprintf("Olá %s, vi seu contato através da %s/%s", contact.Name, c.brand, c.platform)
		links[i] = whatsAppLink(contact.Phone, greeting)
	}

	return Target{
		Audience: AudienceRequester,
		Name:     lead.Name,
		Phone:    lead.Phone,
		Links:    links,
		Compose: func(short []string) (string, error) {
			rows := make([]requesterContact, len(contacts))
			for i, contact := range contacts {
				rows[i] = requesterContact{
					Position: i + 1,
					Name:     contact.Name,
					Display:  displayPhone(contact.Phone),
					Link:     at(short, i),
				}
			}
			return render(requesterTmpl, map[string]any{
				"Brand":    c.brand,
				"Platform": c.platform,
				"Contacts": rows,
			})
		},
	}
}

// ForProvider builds the message introducing the lead to one provider.
func (c Composer) ForProvider(lead Lead, provider Contact) Target {
	greeting := fmt.Sprintf("Olá %s, sou o profissional indicado pela %s", firstName(lead.Name), c.brand)
	var links []string
	if link := whatsAppLink(lead.Phone, greeting); link != "" {
		links = []string{link}
	}

	return Target{
		Audience: AudienceProvider,
		Name:     provider.Name,
		Phone:    provider.Phone,
		Links:    links,
		Compose: func(short []string) (string, error) {
			return render(providerTmpl, map[string]any{
				"Brand":    c.brand,
				"Platform": c.platform,
				"Lead":     lead,
				"Display":  displayPhone(lead.Phone),
				"Service":  ServiceLabel(lead.ServiceKind),
				"Link":     at(short, 0),
			})
		},
	}
}

func render(tmpl *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s message: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(b.String()), nil
}

func whatsAppLink(p, text string) string {
	return linkshortener.WhatsAppLink(phone.Normalize(p), text)
}

func displayPhone(p string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	return phone.Display(p)
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func at(values []string, i int) string {
	if i < 0 || i >= len(values) {
		return ""
	}
	return values[i]
}
