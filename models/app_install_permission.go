// Package models contains domain entities and persistence models for the ad selection storage system
package models

// AppInstallPermission grants one buyer ad tech the right to filter ads
// against one app package's install state. Keyed by (buyer, package name).
type AppInstallPermission struct {
	Buyer       string `gorm:"column:buyer;primaryKey;size:255" json:"buyer" validate:"required"`
	PackageName string `gorm:"column:package_name;primaryKey;size:255" json:"package_name" validate:"required"`
}

func (AppInstallPermission) TableName() string {
	return "app_install_permissions"
}

// AppInstallPermissionFilter represents filter criteria for app install queries
type AppInstallPermissionFilter struct {
	Buyer       *string
	PackageName *string
}
