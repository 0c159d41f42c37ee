package gemini

// generateContent request and response types.

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
	ResponseSchema   schema `json:"responseSchema"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// text concatenates the parts of the first candidate.
func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var s string
	for _, p := range r.Candidates[0].Content.Parts {
		s += p.Text
	}
	return s
}

// schema is the OpenAPI subset accepted as responseSchema.
type schema struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Enum        []string          `json:"enum,omitempty"`
	Items       *schema           `json:"items,omitempty"`
	Properties  map[string]schema `json:"properties,omitempty"`
	Required    []string          `json:"required,omitempty"`
}

var routesSchema = schema{
	Type: "ARRAY",
	Items: &schema{
		Type: "OBJECT",
		Properties: map[string]schema{
			"type":        {Type: "STRING", Enum: []string{"LEISURE", "FAST", "TRANSPORT"}},
			"title":       {Type: "STRING"},
			"duration":    {Type: "STRING"},
			"distance":    {Type: "STRING"},
			"scenicScore": {Type: "NUMBER"},
			"crowdLevel":  {Type: "STRING", Enum: []string{"Low", "Medium", "High"}},
			"description": {Type: "STRING"},
			"landmarks":   {Type: "ARRAY", Items: &schema{Type: "STRING"}},
			"steps": {
				Type: "ARRAY",
				Items: &schema{
					Type: "OBJECT",
					Properties: map[string]schema{
						"instruction": {Type: "STRING"},
						"distance":    {Type: "STRING"},
					},
				},
			},
		},
		Required: []string{"type", "title", "duration", "distance", "scenicScore", "crowdLevel", "description"},
	},
}

var densitySchema = schema{
	Type: "ARRAY",
	Items: &schema{
		Type: "OBJECT",
		Properties: map[string]schema{
			"name":            {Type: "STRING"},
			"densityScore":    {Type: "NUMBER"},
			"populationTrend": {Type: "NUMBER", Description: "Previous hour comparison"},
			"time":            {Type: "STRING"},
		},
		Required: []string{"name", "densityScore"},
	},
}
