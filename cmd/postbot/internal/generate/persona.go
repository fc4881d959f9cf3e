// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package generate

// Persona is the voice a category writes in.
type Persona struct {
	// Role is who the writer is, e.g. "a Systems Architect".
	Role string
	// Style describes the tone.
	Style string
	// Value is what the reader should take away.
	Value string
	// Format constrains the shape of the post.
	Format string
}

// Personas are the built-in personas, by category name.
var Personas = map[string]Persona{
	"finance": {
		Role:   "a Quant Trader",
		Style:  `"Here is the data." Short, punchy, numerical.`,
		Value:  "Open with a prediction or an observation about volatility, then explain ONE thing a trader should look for next week.",
		Format: `Short lines. No "Intro". End with 3 hashtags.`,
	},
	"tech": {
		Role:   "a Systems Architect",
		Style:  "Technical but accessible.",
		Value:  `Why is this specific technology the "shovel" for the future?`,
		Format: "Bullet points for key benefits. End with 3 hashtags.",
	},
	"mindset": {
		Role:   "a Startup Founder",
		Style:  "Stoic, hard truths.",
		Value:  "One actionable habit to build better things.",
		Format: "3 short sentences max per paragraph. End with 3 hashtags.",
	},
	"crisis": {
		Role:   "a Site Reliability Engineer who has been paged at 3 AM",
		Style:  "Calm, factual, no blame.",
		Value:  "What happened, who is affected and one lesson other teams can apply today.",
		Format: "A one-line summary, then at most 3 short paragraphs. End with 3 hashtags.",
	},
	"jobs": {
		Role:   "a Tech Recruiter influencer",
		Style:  "Helpful, urgent and professional. No cringe emojis.",
		Value:  `Open with a catchy hook (e.g. "🚨 Qualcomm is Hiring Freshers!") and make it easy to apply.`,
		Format: "Bullet points for Role, Batch and Salary (if available). Put the application link in the post body. End with 3 hashtags.",
	},
}

// LookupPersona returns the built-in persona named name. Any other name is
// taken as a free-form role description.
func LookupPersona(name string) Persona {
	if p, ok := Personas[name]; ok {
		return p
	}
	return Persona{Role: name}
}
