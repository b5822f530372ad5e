package respond

import (
	"strings"

	"github.com/voicehive/voicehive/internal/intent"
)

// templates is the fallback response table, keyed by intent. Used whenever
// the LLM path fails or returns empty content. English covers every intent;
// German, Spanish and French cover the high-traffic ones and fall back to
// English otherwise.
var templates = map[intent.Intent]map[string]string{
	intent.Greeting: {
		"en": "Hello! How may I help you today?",
		"de": "Guten Tag! Wie kann ich Ihnen helfen?",
		"es": "¡Hola! ¿En qué puedo ayudarle?",
		"fr": "Bonjour ! Comment puis-je vous aider ?",
	},
	intent.BookingInquiry: {
		"en": "I'd be happy to help with your booking. Could you tell me your arrival and departure dates and the number of guests?",
		"de": "Gerne helfe ich Ihnen bei Ihrer Buchung. Nennen Sie mir bitte An- und Abreisedatum sowie die Personenzahl?",
		"es": "Con gusto le ayudo con su reserva. ¿Me indica las fechas de llegada y salida y el número de personas?",
		"fr": "Avec plaisir pour votre réservation. Pouvez-vous m'indiquer vos dates d'arrivée et de départ et le nombre de personnes ?",
	},
	intent.ReservationModify: {
		"en": "Of course, I can change your reservation. Could you give me your confirmation number?",
		"de": "Natürlich kann ich Ihre Reservierung ändern. Nennen Sie mir bitte Ihre Buchungsnummer?",
	},
	intent.ReservationCancel: {
		"en": "I can cancel that for you. Could you give me your confirmation number?",
		"de": "Das kann ich gerne stornieren. Nennen Sie mir bitte Ihre Buchungsnummer?",
	},
	intent.UpsellOpportunity: {
		"en": "We have some lovely upgrade options for your stay. Would you like to hear them?",
	},
	intent.RestaurantBooking: {
		"en": "I'd be glad to reserve a table for you. For which date and time, and how many guests?",
		"de": "Gerne reserviere ich einen Tisch für Sie. Für welches Datum, welche Uhrzeit und wie viele Personen?",
	},
	intent.SpaBooking: {
		"en": "I can book a spa treatment for you. Which treatment would you like, and when?",
		"de": "Gerne buche ich eine Spa-Anwendung für Sie. Welche Anwendung wünschen Sie, und wann?",
	},
	intent.RoomService: {
		"en": "Of course. What would you like to order, and what is your room number?",
		"de": "Sehr gerne. Was möchten Sie bestellen, und wie lautet Ihre Zimmernummer?",
	},
	intent.ConciergeServices: {
		"en": "Our concierge team can arrange that for you. What exactly do you need?",
	},
	intent.ComplaintFeedback: {
		"en": "I'm very sorry to hear that. Could you tell me exactly what happened so we can make it right?",
		"de": "Das tut mir sehr leid. Können Sie mir genau schildern, was passiert ist, damit wir das in Ordnung bringen?",
		"es": "Lamento mucho lo sucedido. ¿Puede contarme exactamente qué pasó para poder solucionarlo?",
		"fr": "J'en suis vraiment désolé. Pouvez-vous me dire exactement ce qui s'est passé afin que nous puissions y remédier ?",
	},
	intent.TransferToOperator: {
		"en": "Of course, I'll connect you with a member of our team. One moment, please.",
		"de": "Selbstverständlich, ich verbinde Sie mit einem Mitarbeiter. Einen Moment bitte.",
		"es": "Por supuesto, le comunico con un miembro de nuestro equipo. Un momento, por favor.",
		"fr": "Bien sûr, je vous mets en relation avec un membre de notre équipe. Un instant, s'il vous plaît.",
	},
	intent.FallbackToHuman: {
		"en": "Let me connect you with a colleague who can help. One moment, please.",
	},
	intent.EndCall: {
		"en": "Thank you for calling. Have a wonderful day!",
		"de": "Vielen Dank für Ihren Anruf. Ich wünsche Ihnen einen schönen Tag!",
		"es": "Gracias por su llamada. ¡Que tenga un buen día!",
		"fr": "Merci de votre appel. Très bonne journée !",
	},
	intent.HotelInformation: {
		"en": "Happy to help with information about the hotel. What would you like to know?",
	},
	intent.GeneralQuestion: {
		"en": "That's a good question. Let me help you with that — could you give me a few more details?",
	},
	intent.RequestInfo: {
		"en": "Of course. What information can I provide for you?",
	},
	intent.PaymentInquiry: {
		"en": "I can help with payment questions. What would you like to know about your bill or payment options?",
	},
	intent.Unknown: {
		"en": "I'm sorry, I didn't quite catch that. Could you please rephrase?",
		"de": "Entschuldigung, das habe ich nicht ganz verstanden. Können Sie das bitte anders formulieren?",
		"es": "Disculpe, no le he entendido bien. ¿Podría decirlo de otra manera?",
		"fr": "Excusez-moi, je n'ai pas bien compris. Pouvez-vous reformuler ?",
	},
}

// templateFor returns the fallback response for the intent in the caller's
// language, falling back to the English template and finally to the unknown
// template.
func templateFor(in intent.Intent, language string) string {
	lang := strings.ToLower(language)
	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i]
	}

	if byLang, ok := templates[in]; ok {
		if text, ok := byLang[lang]; ok {
			return text
		}
		if text, ok := byLang["en"]; ok {
			return text
		}
	}
	if text, ok := templates[intent.Unknown][lang]; ok {
		return text
	}
	return templates[intent.Unknown]["en"]
}
