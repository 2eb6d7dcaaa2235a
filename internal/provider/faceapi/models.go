package faceapi

// DetectRequest for POST /detect
type DetectRequest struct {
	Img             string  `json:"img"` // base64 encoded frame
	WithDescriptors bool    `json:"with_descriptors"`
	MinConfidence   float64 `json:"min_confidence"`
}

// DetectResponse from POST /detect
type DetectResponse struct {
	Faces []FaceResult `json:"faces"`
}

type FaceResult struct {
	Box         Box                `json:"box"`
	Score       float64            `json:"score"`
	Landmarks   []Position         `json:"landmarks"`   // 68 points
	Expressions map[string]float64 `json:"expressions"` // neutral, happy, sad, ...
	Descriptor  []float64          `json:"descriptor,omitempty"`
}

type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DescribeRequest for POST /describe
type DescribeRequest struct {
	Img string `json:"img"`
}

// DescribeResponse from POST /describe
type DescribeResponse struct {
	Descriptor []float64 `json:"descriptor"`
}

// HealthResponse from GET /health
type HealthResponse struct {
	Status string   `json:"status"`
	Models []string `json:"models"`
}
