package session

import (
	"fmt"
	"strings"
)

// greetings is the call_started template per language. Unlisted languages
// fall back to English.
var greetings = map[string]string{
	"en": "Welcome to %s! I'm your virtual assistant. How may I help you today?",
	"de": "Herzlich willkommen im %s! Ich bin Ihr virtueller Assistent. Wie kann ich Ihnen helfen?",
	"es": "¡Bienvenido a %s! Soy su asistente virtual. ¿En qué puedo ayudarle?",
	"fr": "Bienvenue au %s ! Je suis votre assistant virtuel. Comment puis-je vous aider ?",
}

// Greeting renders the localized call-started greeting for a hotel.
func Greeting(language, hotelName string) string {
	if hotelName == "" {
		hotelName = "VoiceHive Hotel"
	}
	tpl, ok := greetings[shortCode(language)]
	if !ok {
		tpl = greetings["en"]
	}
	return fmt.Sprintf(tpl, hotelName)
}

// dtmfTexts holds the keypad menu strings per action and language. The digit
// table is fixed: 1 booking, 2 information, 3 concierge, 4 spa, 0 operator,
// * main menu, # repeat.
var dtmfTexts = map[string]map[string]string{
	"main_menu": {
		"en": "Main menu: press 1 for reservations, 2 for hotel information, 3 for concierge services, 4 for spa bookings, or 0 to speak with an operator.",
		"de": "Hauptmenü: Drücken Sie 1 für Reservierungen, 2 für Hotelinformationen, 3 für den Concierge, 4 für Spa-Buchungen oder 0 für einen Mitarbeiter.",
		"es": "Menú principal: pulse 1 para reservas, 2 para información del hotel, 3 para conserjería, 4 para reservas de spa o 0 para hablar con un operador.",
		"fr": "Menu principal : appuyez sur 1 pour les réservations, 2 pour les informations sur l'hôtel, 3 pour la conciergerie, 4 pour le spa ou 0 pour parler à un opérateur.",
	},
	"booking_inquiry": {
		"en": "I'd be happy to help with a reservation. What dates are you interested in?",
		"de": "Gerne helfe ich Ihnen bei einer Reservierung. Für welche Daten interessieren Sie sich?",
		"es": "Con gusto le ayudo con una reserva. ¿Qué fechas le interesan?",
		"fr": "Avec plaisir pour une réservation. Quelles dates vous intéressent ?",
	},
	"request_info": {
		"en": "What would you like to know about the hotel?",
		"de": "Was möchten Sie über das Hotel wissen?",
		"es": "¿Qué le gustaría saber sobre el hotel?",
		"fr": "Que souhaitez-vous savoir sur l'hôtel ?",
	},
	"concierge_services": {
		"en": "Our concierge can help with restaurants, transport and local tips. What do you need?",
		"de": "Unser Concierge hilft bei Restaurants, Transport und Tipps vor Ort. Was benötigen Sie?",
		"es": "Nuestro conserje puede ayudarle con restaurantes, transporte y recomendaciones. ¿Qué necesita?",
		"fr": "Notre conciergerie peut vous aider pour les restaurants, les transports et les conseils. De quoi avez-vous besoin ?",
	},
	"spa_booking": {
		"en": "I can book a spa treatment for you. Which treatment would you like, and when?",
		"de": "Gerne buche ich eine Spa-Anwendung für Sie. Welche Anwendung wünschen Sie, und wann?",
		"es": "Puedo reservarle un tratamiento de spa. ¿Cuál desea y cuándo?",
		"fr": "Je peux vous réserver un soin au spa. Lequel souhaitez-vous, et quand ?",
	},
	"operator_transfer": {
		"en": "Of course, I'll connect you with a member of our team. One moment, please.",
		"de": "Selbstverständlich, ich verbinde Sie mit einem Mitarbeiter. Einen Moment bitte.",
		"es": "Por supuesto, le comunico con un miembro de nuestro equipo. Un momento, por favor.",
		"fr": "Bien sûr, je vous mets en relation avec un membre de notre équipe. Un instant, s'il vous plaît.",
	},
}

// dtmfText renders the menu string for an action in the caller's language,
// falling back to English.
func dtmfText(action, language string) string {
	byLang, ok := dtmfTexts[action]
	if !ok {
		byLang = dtmfTexts["main_menu"]
	}
	if text, ok := byLang[shortCode(language)]; ok {
		return text
	}
	return byLang["en"]
}

func shortCode(language string) string {
	lang := strings.ToLower(language)
	if i := strings.IndexByte(lang, '-'); i > 0 {
		return lang[:i]
	}
	return lang
}
