package domain

// Barcode lookup sources, in cascade order.
const (
	BarcodeSourceUPCItemDB = "upcitemdb"
	BarcodeSourceRapidAPI  = "rapidapi"
	BarcodeSourceAI        = "ai"
)

// BarcodeProduct is the result of a UPC/EAN lookup.
type BarcodeProduct struct {
	Code        string   `json:"code"`
	Title       string   `json:"title"`
	Brand       string   `json:"brand,omitempty"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`
	Source      string   `json:"source"`
	Confidence  float64  `json:"confidence"`
}

// BarcodeScan is the result of decoding a photo and looking the code up.
type BarcodeScan struct {
	Code    string          `json:"code"`
	Product *BarcodeProduct `json:"product"`
}
