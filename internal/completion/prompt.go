package completion

import (
	"fmt"
	"strings"

	"github.com/zentexa/wabot-platform/internal/tenant"
)

const basePrompt = `Tu es l'assistant WhatsApp de l'entreprise "%s". Tu réponds aux clients de façon brève, chaleureuse et professionnelle, dans la langue du client. Tu ne révèles jamais que tu es un programme sauf si on te le demande directement. Si tu ne connais pas la réponse, propose au client de contacter directement le responsable.`

var modePrompts = map[tenant.BotMode]string{
	tenant.ModeConversational: `Réponds aux questions des clients en t'appuyant sur les informations de l'entreprise ci-dessous.`,
	tenant.ModeEcommerce: `Tu aides les clients à découvrir les produits et à passer commande. Quand un client exprime clairement une intention d'achat, décris le produit et son prix à partir des informations de l'entreprise, sans inventer de prix. Ne confirme jamais une commande toi-même : le processus de confirmation est géré séparément.`,
	tenant.ModeAppointment: `Tu aides les clients à prendre rendez-vous. Collecte le motif, les disponibilités du client (jour et créneau), puis indique que le responsable confirmera l'horaire exact. Tu n'as pas accès au calendrier : ne promets jamais un créneau précis.`,
	tenant.ModeDelivery: `Tu renseignes les clients sur le suivi de leur livraison à partir des informations de l'entreprise. Si le numéro de suivi est inconnu, demande-le poliment.`,
}

const visionPrompt = `Tu analyses une image envoyée par un client comme preuve de paiement. Extrais le montant, la date et tout identifiant de transaction visibles. Réponds en une ou deux phrases factuelles. Si l'image n'est manifestement pas une preuve de paiement, dis-le.`

// SystemPrompt assembles the per-tenant system instruction from the bot mode
// and the free-form business data.
func SystemPrompt(t *tenant.Tenant, senderName string) []string {
	blocks := []string{fmt.Sprintf(basePrompt, t.Name)}
	if mode, ok := modePrompts[t.Mode]; ok {
		blocks = append(blocks, mode)
	}
	if data := strings.TrimSpace(t.BusinessData); data != "" {
		blocks = append(blocks, "Informations de l'entreprise :\n"+data)
	}
	if senderName = strings.TrimSpace(senderName); senderName != "" {
		blocks = append(blocks, fmt.Sprintf("Le client s'appelle %s.", senderName))
	}
	return blocks
}
