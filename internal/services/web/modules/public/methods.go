package public

import "github.com/prestigeprep/prep/internal/services/web/routepath"

// Method is one study methodology page.
type Method struct {
	Slug   string
	Title  string
	Blurb  string
	How    []string
	HowApp []string
}

// MethodCard is the index entry for a method.
type MethodCard struct {
	Path  string
	Title string
	Blurb string
}

var methods = []Method{
	{
		Slug:   "active-recall",
		Title:  "Active Recall",
		Blurb:  "Pull answers from memory instead of rereading.",
		How:    []string{"Answer from memory before revealing the solution.", "Prefer explain-back in your own words."},
		HowApp: []string{"Use Drill Runner to answer before checking.", "Turn misses into focused sets via Recommended."},
	},
	{
		Slug:   "spaced-repetition",
		Title:  "Spaced Repetition",
		Blurb:  "Review at increasing intervals to lock it in.",
		How:    []string{"Revisit items at increasing intervals.", "Stop reviewing items you consistently get right."},
		HowApp: []string{"We'll space reviews via recent attempts.", "Recommended suggests what to revisit next."},
	},
	{
		Slug:   "interleaving",
		Title:  "Interleaving",
		Blurb:  "Mix topics to strengthen flexible recall.",
		How:    []string{"Mix topics to boost flexible recall.", "Rotate sections instead of blocking a single type."},
		HowApp: []string{"Switch sets quickly from Content Admin.", "Recommended alternates topics you miss."},
	},
	{
		Slug:   "deliberate-practice",
		Title:  "Deliberate Practice",
		Blurb:  "Target weak skills with focused reps.",
		How:    []string{"Train at the edge of your ability, slightly hard.", "Get immediate feedback and retry."},
		HowApp: []string{"Use difficulty tags to focus.", "Review explanations before re-attempting."},
	},
	{
		Slug:   "mastery-learning",
		Title:  "Mastery Learning",
		Blurb:  "Advance only after a high accuracy threshold.",
		How:    []string{"Don't advance until you hit a target accuracy.", "Measure accuracy per module or topic."},
		HowApp: []string{"Strict policy gates drills until today's check-in.", "Recommended shows accuracy per area."},
	},
	{
		Slug:   "worked-examples",
		Title:  "Worked Examples",
		Blurb:  "Study step-by-step solutions before solo attempts.",
		How:    []string{"Study step-by-step solutions first.", "Fade support as you improve."},
		HowApp: []string{"Read explanations after each item.", "Retry similar items from the same set."},
	},
	{
		Slug:   "fading",
		Title:  "Fading (Scaffold Reduction)",
		Blurb:  "Gradually remove hints until you're independent.",
		How:    []string{"Start with heavy hints, remove them gradually.", "End with independent solving."},
		HowApp: []string{"Check explanations less often on each pass.", "Use your accuracy to decide when to fade."},
	},
	{
		Slug:   "retrieval-confidence",
		Title:  "Retrieval + Confidence",
		Blurb:  "Answer and rate confidence for calibrated learning.",
		How:    []string{"Rate how sure you were after answering.", "Prioritize low-confidence correct answers for review."},
		HowApp: []string{"Every attempt is stored with its area tags.", "Recommended surfaces low-accuracy areas."},
	},
	{
		Slug:   "timed-drills",
		Title:  "Timed Drills & Benchmarks",
		Blurb:  "Practice under time to match the real test.",
		How:    []string{"Practice with the real timing per section.", "Compare your pace across attempts."},
		HowApp: []string{"Drill Runner records time spent on each item.", "Dashboard shows your streak and goal."},
	},
	{
		Slug:   "error-logging",
		Title:  "Error Logging & Reflection",
		Blurb:  "Capture mistakes and review them deliberately.",
		How:    []string{"Log every miss and describe the misconception.", "Revisit the log weekly."},
		HowApp: []string{"Attempts are stored with tags and correctness.", "Recommended uses your recent 50 attempts."},
	},
}

func methodCards() []MethodCard {
	cards := make([]MethodCard, 0, len(methods))
	for _, m := range methods {
		cards = append(cards, MethodCard{Path: routepath.Method(m.Slug), Title: m.Title, Blurb: m.Blurb})
	}
	return cards
}

func lookupMethod(slug string) (Method, bool) {
	for _, m := range methods {
		if m.Slug == slug {
			return m, true
		}
	}
	return Method{}, false
}
