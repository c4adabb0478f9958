package orders

import "strings"

// IntentDetector decides when a customer message opens or advances a
// purchase. The assistant reply is passed alongside the message so smarter
// implementations can use it; the default keyword detector ignores it.
type IntentDetector interface {
	PurchaseIntent(message, reply string) bool
	PaymentClaim(message string) bool
}

// KeywordDetector matches a fixed multilingual keyword list.
type KeywordDetector struct{}

var purchaseKeywords = []string{
	"je veux acheter", "je veux commander", "je l'achète", "j'achete",
	"j'achète", "je le prends", "je la prends", "je commande",
	"je veux l'acheter", "je passe commande",
	"i want to buy", "i want to order", "i'll take it", "i will take it",
	"i want it", "buy it", "order it", "quiero comprar",
}

var paymentKeywords = []string{
	"j'ai payé", "j'ai paye", "paiement effectué", "paiement fait",
	"virement effectué", "virement fait", "c'est payé", "j'ai fait le virement",
	"i paid", "i have paid", "payment done", "payment sent", "transfer done",
}

func (KeywordDetector) PurchaseIntent(message, _ string) bool {
	return containsAny(message, purchaseKeywords)
}

func (KeywordDetector) PaymentClaim(message string) bool {
	return containsAny(message, paymentKeywords)
}

func containsAny(message string, keywords []string) bool {
	m := strings.ToLower(message)
	for _, k := range keywords {
		if strings.Contains(m, k) {
			return true
		}
	}
	return false
}
