package model

// AssetType classifies a scan target. Assets are owned by the asset service;
// this package only carries the shape so callers can pass the endpoint along.
type AssetType string

const (
	AssetTypeDomain AssetType = "Domain"
	AssetTypeIP     AssetType = "IP"
	AssetTypeCloud  AssetType = "Cloud"
)

type Asset struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Endpoint  string    `json:"endpoint"`
	Type      AssetType `json:"type"`
	RiskLevel string    `json:"risk_level"`
	Status    string    `json:"status"`
}
