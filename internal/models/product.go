package models

// Product is one entry of the products.json catalogue served to testers.
// Image values are either catalogue-relative paths or data URLs.
type Product struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	ProductImage string            `json:"productImage"`
	Images       map[string]string `json:"images"`
}

// Version keys of the generated model images, in report order.
const (
	VersionSimple           = "simple"
	VersionExtended         = "extended"
	VersionNoReference      = "no_reference"
	VersionNoReferenceModel = "no_reference_model"
	VersionNone             = "none"
)

var Versions = []string{
	VersionSimple,
	VersionExtended,
	VersionNoReference,
	VersionNoReferenceModel,
	VersionNone,
}

var versionNames = map[string]string{
	VersionSimple:           "简单版",
	VersionExtended:         "扩展版",
	VersionNoReference:      "不垫图版",
	VersionNoReferenceModel: "不垫图版模特",
	VersionNone:             "都不满意",
}

// VersionName returns the display name of a version key, or the key itself
// when it is unknown.
func VersionName(key string) string {
	if name, ok := versionNames[key]; ok {
		return name
	}
	return key
}
