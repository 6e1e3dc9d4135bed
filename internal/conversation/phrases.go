package conversation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var greetingReplies = []string{
	"Hello! I'm here to help with your roofing needs. What can I assist you with today?",
	"Hi there! I'm your roofing assistant. How can I help you today?",
	"Welcome! I'm here to help with any roofing questions or emergencies. What brings you here?",
	"Hi! Thanks for reaching out. I'm here to help with all your roofing needs. What can I do for you?",
}

var qualificationQuestions = map[Field]string{
	FieldName:             "To get started, may I have your name?",
	FieldPhone:            "Great! What's the best phone number to reach you?",
	FieldAddress:          "Perfect. And what's the address where we'll be working?",
	FieldProblem:          "Thanks! Can you describe the roofing issue you're experiencing?",
	FieldPreferredContact: "How would you prefer we contact you - by phone, email, or text?",
}

const (
	adviceLeak        = "For active leaks, try placing a bucket or container to catch the water temporarily. If water is entering your electrical system or causing significant damage, please turn off power to affected areas and contact us immediately. We can usually respond within 2 hours for emergency leaks."
	adviceStorm       = "After a storm, it's important to document any visible damage with photos. Check for missing shingles, dents from hail, or debris. Even if damage isn't immediately visible, we recommend a professional inspection as some issues may not be apparent from the ground."
	advicePreventive  = "Regular roof maintenance can extend your roof's life significantly. We recommend annual inspections, especially after severe weather. Early detection of minor issues can prevent costly repairs down the road."
	adviceShingles    = "Missing or damaged shingles can lead to leaks and further damage. The severity depends on how many are affected and their location. If you see multiple missing shingles or damage near roof valleys, chimneys, or vents, it's worth getting an inspection soon."
	adviceVentilation = "Proper attic ventilation is crucial for roof health. Poor ventilation can cause ice dams in winter, excessive heat in summer, and can shorten your roof's lifespan. Signs include mold growth, ice buildup, or unusually high energy bills."
	adviceUrgent      = "This sounds like it needs immediate attention. We can dispatch a technician within 2 hours for emergency situations. Would you like to proceed with scheduling?"
	adviceInspection  = "I'd recommend having a professional inspection to assess the full extent of the issue. We offer free inspections and can provide a detailed estimate. Would you like to schedule one?"
)

var categoryAdvice = map[Category]string{
	CategoryLeaks:       adviceLeak,
	CategoryStorm:       adviceStorm,
	CategoryWear:        adviceShingles,
	CategoryVentilation: adviceVentilation,
}

const (
	replyEscalate = "I understand you'd like to speak with someone directly. Let me connect you with one of our roofing specialists. Can I get your phone number so they can call you right away?"

	replyCritical        = "🚨 This sounds like a critical emergency! We prioritize these situations and can typically have a technician on-site within 2 hours. To expedite this, can I get your name and phone number right away?"
	replyUrgent          = "🚨 I understand this is urgent. We can help! Emergency roof repairs are typically available within 2-4 hours. Can you provide your name and phone number so we can contact you immediately?"
	suffixEmergencyName  = " Let's get your information so we can help you as quickly as possible. What's your name?"
	replyAttentionSoon   = "This sounds like it needs attention soon. Let's get your information so we can schedule an inspection. What's your name?"
	suffixGreetingName   = " To help you better, I'll need a few details. Can I start with your name?"
	replyGreetingDetails = "I understand. To help you better, I'll need a few details. Can I start with your name?"

	replyQualified       = "Perfect! I have all the information I need. Would you like to schedule an appointment? We can typically schedule inspections within 24-48 hours, or sooner for emergencies."
	replyAnythingElse    = "Great! Is there anything else I can help you with?"
	replyNoProblem       = "No problem! Is there anything else I can help you with regarding your roofing needs?"
	replySchedulePick    = "Great! I can help you schedule an appointment. What time works best for you? We have availability today and tomorrow."
	replyScheduleLater   = "No problem! We're here whenever you're ready. Feel free to reach out anytime, or I can send you a reminder. How would you like to proceed?"
	replyScheduleDefault = "I'd be happy to help you schedule an appointment. When would be a good time for you? We have availability today and tomorrow."

	replyQuote         = "I'd be happy to help you get a quote! To provide an accurate estimate, I'll need to gather some information about your roof and the specific issue. Can I start with your name?"
	replyInspection    = "Roof inspections are important for maintaining your roof's integrity and catching issues early. We offer free inspections with no obligation. Would you like to schedule one?"
	suffixRepair       = " Can you describe what needs to be fixed in more detail?"
	replyRepair        = "We can definitely help with roof repairs! Can you describe what needs to be fixed? This will help us determine if it's an emergency or if we can schedule a regular appointment."
	suffixMaintenance  = " Would you like to schedule a maintenance inspection?"
	replyWarranty      = "We stand behind our work with comprehensive warranties. The specifics depend on the type of work and materials used. I can connect you with one of our specialists who can provide detailed warranty information. Would you like to speak with them?"
	replyThanks        = "You're very welcome! I'm glad I could help. Is there anything else you need assistance with regarding your roofing needs?"
	replyHello         = "Hi! How can I help you with your roofing needs today?"
	suffixTellMore     = " Can you tell me more about your specific situation?"
	replyMoreDetail    = "I understand. Can you provide a bit more detail about your roofing concern? This will help me assist you better."
	replyDefault       = "I'd be happy to help! Can you tell me more about your roofing issue so I can provide the best assistance?"
)

// Intent keyword sets. Short words are matched as whole words, longer stems as substrings.
var (
	schedulingIntentKeywords = []string{"schedule", "appointment", "time", "when"}
	confirmationKeywords     = []string{"confirm", "booked", "scheduled", "done"}

	affirmativeWords = []string{"yes", "ok", "okay", "yep"}
	affirmativeStems = []string{"sure"}
	negativeWords    = []string{"no", "not", "nope", "don't"}

	scheduleAcceptWords = []string{"yes"}
	scheduleAcceptStems = []string{"schedule", "appointment", "time"}
	scheduleDeclineWord = []string{"no"}
	scheduleDeclineStem = []string{"not now", "later"}

	quoteStems       = []string{"quote", "price", "cost", "estimate"}
	inspectionStems  = []string{"inspection", "inspect", "check"}
	repairStems      = []string{"repair", "fix", "broken"}
	maintenanceStems = []string{"maintenance", "prevent", "maintain", "upkeep"}
	warrantyStems    = []string{"warranty", "guarantee", "warrant"}
	thanksStems      = []string{"thank", "appreciate"}
	helloWords       = []string{"hello", "hi", "hey"}
)

var bareGreetingPattern = regexp.MustCompile(`^\s*(hello|hi|hey|hiya|help|thanks|thank you|good (morning|afternoon|evening))(\s+there)?[\s!.?,]*$`)

// isBareGreeting reports whether lower is only a greeting or thanks, or too short to carry content.
func isBareGreeting(lower string) bool {
	return bareGreetingPattern.MatchString(lower) || utf8.RuneCountInString(strings.TrimSpace(lower)) < 5
}

func hasWord(lower string, candidates ...string) bool {
	for _, tok := range words(lower) {
		for _, c := range candidates {
			if tok == c {
				return true
			}
		}
	}
	return false
}
