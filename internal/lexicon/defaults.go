package lexicon

var defaultTechnicalKeywords = []string{
	"accessibility", "ARIA", "usability", "UI", "user flow",
	"wireframe", "prototype", "JavaScript", "React", "Vue",
	"CSS", "HTML", "responsive design", "user research",
}

var defaultCodingPatterns = []string{
	`write (a|an) (function|algorithm|program|code)`,
	`implement (a|an) (function|method|component)`,
	`how would you code`,
	`create (a|an) (component|module|class)`,
}

var defaultCandidateLabels = []string{
	"technical explanation", "coding exercise", "personal experience",
	"behavioral", "opinion", "system design",
}

var defaultQuestionOpeners = []string{
	"how", "what", "why", "can you", "could you",
}

var defaultFollowUpIndicators = []string{
	"how would you", "what about", "can you explain",
	"why did you", "what if", "could you elaborate",
}

// Cue phrases used by the offline classifier. Keys must match candidate labels.
var defaultLabelCues = map[string][]string{
	"technical explanation": {
		"explain", "difference between", "how does", "what is", "what are",
		"concept", "complexity", "data structure", "array", "linked list",
		"css", "html", "accessibility", "under the hood",
	},
	"coding exercise": {
		"write", "code", "implement", "function", "method", "create",
		"build", "program", "script", "class", "algorithm", "solution",
	},
	"personal experience": {
		"your experience", "you worked", "your last", "previous role",
		"project you", "tell me about your", "have you ever", "in your career",
		"your background",
	},
	"behavioral": {
		"tell me about a time", "conflict", "challenge", "team", "situation",
		"handled", "disagree", "mistake", "feedback", "deadline", "stakeholder",
	},
	"opinion": {
		"what do you think", "opinion", "prefer", "favorite", "favourite",
		"your view", "feel about", "best way", "should we",
	},
	"system design": {
		"design a", "design the", "system", "architecture", "scale",
		"scalable", "distributed", "database", "load balancer", "cache",
		"microservice", "throughput",
	},
}

var defaultEntities = []Entity{
	{Name: "JavaScript", Type: "TECH", Variants: []string{"javascript", "js"}},
	{Name: "TypeScript", Type: "TECH", Variants: []string{"typescript"}},
	{Name: "React", Type: "TECH", Variants: []string{"react", "react.js", "reactjs"}},
	{Name: "Vue", Type: "TECH", Variants: []string{"vue", "vue.js", "vuejs"}},
	{Name: "Angular", Type: "TECH", Variants: []string{"angular"}},
	{Name: "Node.js", Type: "TECH", Variants: []string{"node.js", "nodejs"}},
	{Name: "CSS", Type: "TECH", Variants: []string{"css"}},
	{Name: "HTML", Type: "TECH", Variants: []string{"html"}},
	{Name: "WCAG", Type: "TECH", Variants: []string{"wcag"}},
	{Name: "ARIA", Type: "TECH", Variants: []string{"aria"}},
	{Name: "Figma", Type: "PRODUCT", Variants: []string{"figma"}},
	{Name: "Google", Type: "ORG", Variants: []string{"google"}},
	{Name: "Apple", Type: "ORG", Variants: []string{"apple"}},
	{Name: "Microsoft", Type: "ORG", Variants: []string{"microsoft"}},
	{Name: "Amazon", Type: "ORG", Variants: []string{"amazon", "aws"}},
	{Name: "Meta", Type: "ORG", Variants: []string{"meta", "facebook"}},
}
