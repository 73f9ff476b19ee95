package transport

// CaptureLeadRequest is a website or in-app lead submission.
type CaptureLeadRequest struct {
	Name          string   `json:"name" validate:"required,min=1,max=200"`
	Email         string   `json:"email" validate:"required,email,max=254"`
	Phone         string   `json:"phone,omitempty" validate:"omitempty,max=40"`
	Company       string   `json:"company,omitempty" validate:"omitempty,max=200"`
	Message       string   `json:"message,omitempty" validate:"omitempty,max=5000"`
	Status        string   `json:"status,omitempty" validate:"omitempty,max=50"`
	FormID        string   `json:"form_id,omitempty" validate:"omitempty,max=100"`
	ProductID     string   `json:"product_id,omitempty" validate:"omitempty,max=100"`
	CreditScore   *int     `json:"credit_score,omitempty" validate:"omitempty,min=300,max=850"`
	FundingAmount *float64 `json:"funding_amount,omitempty" validate:"omitempty,min=0"`
	BusinessType  string   `json:"business_type,omitempty" validate:"omitempty,max=100"`
	UTMSource     string   `json:"utm_source,omitempty" validate:"omitempty,max=200"`
	UTMMedium     string   `json:"utm_medium,omitempty" validate:"omitempty,max=200"`
	UTMCampaign   string   `json:"utm_campaign,omitempty" validate:"omitempty,max=200"`
	UTMTerm       string   `json:"utm_term,omitempty" validate:"omitempty,max=200"`
	UTMContent    string   `json:"utm_content,omitempty" validate:"omitempty,max=200"`
	Referrer      string   `json:"referrer,omitempty" validate:"omitempty,max=2048"`
	LandingPage   string   `json:"landing_page,omitempty" validate:"omitempty,max=2048"`
}

// CaptureBookingRequest is a consultation or service booking.
type CaptureBookingRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Service string `json:"service,omitempty" validate:"omitempty,max=100"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Time    string `json:"time" validate:"required,max=20"`
	Notes   string `json:"notes,omitempty" validate:"omitempty,max=5000"`
	Source  string `json:"source,omitempty" validate:"omitempty,max=100"`
	Status  string `json:"status,omitempty" validate:"omitempty,max=50"`
}
