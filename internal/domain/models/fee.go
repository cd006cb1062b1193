package models

type Fee struct {
	DeliveryFee float64 `json:"delivery_fee"`
	DriverPay   float64 `json:"driver_pay"`
	Profit      float64 `json:"profit"`
}

type FeeInput struct {
	OrderValue    float64
	DistanceUnits float64
}
