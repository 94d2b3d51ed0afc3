package models

// MonthlyCount is the number of orders created in one calendar month
type MonthlyCount struct {
	Month string `bson:"_id" json:"month"` // "2006-01"
	Count int64  `bson:"count" json:"count"`
}

// Stats is the admin dashboard summary
type Stats struct {
	Users         int64          `json:"users"`
	Products      int64          `json:"products"`
	Orders        int64          `json:"orders"`
	Revenue       float64        `json:"revenue"`
	MonthlyOrders []MonthlyCount `json:"monthlyOrders"`
}
