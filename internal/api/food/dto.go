package food

// NotEdibleMessage is returned verbatim when classification decides the
// image is not food. Clients match on it, do not change the text.
const NotEdibleMessage = "这个不能吃哦"

type IdentifyResponse struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Weight     int     `json:"weight,omitempty"`
	Calories   int     `json:"calories,omitempty"`
	Message    string  `json:"message,omitempty"`
}

type CaloriesQuery struct {
	FoodName string `query:"foodName" validate:"required"`
	Weight   string `query:"weight" validate:"required"`
}

type CaloriesResponse struct {
	Calories int `json:"calories"`
}

// LiveResult is what the websocket classification stream writes per frame.
type LiveResult struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	IsFood     bool    `json:"is_food"`
}
