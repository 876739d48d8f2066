package enums

import "fmt"

// PhoneBrand enumerates the brands a listing can carry.
type PhoneBrand string

const (
	BrandApple      PhoneBrand = "Apple"
	BrandSamsung    PhoneBrand = "Samsung"
	BrandNokia      PhoneBrand = "Nokia"
	BrandSony       PhoneBrand = "Sony"
	BrandLG         PhoneBrand = "LG"
	BrandHTC        PhoneBrand = "HTC"
	BrandHuawei     PhoneBrand = "Huawei"
	BrandMotorola   PhoneBrand = "Motorola"
	BrandBlackBerry PhoneBrand = "BlackBerry"
)

var validPhoneBrands = []PhoneBrand{
	BrandApple,
	BrandSamsung,
	BrandNokia,
	BrandSony,
	BrandLG,
	BrandHTC,
	BrandHuawei,
	BrandMotorola,
	BrandBlackBerry,
}

// PhoneBrands returns the canonical brand list in display order.
func PhoneBrands() []PhoneBrand {
	out := make([]PhoneBrand, len(validPhoneBrands))
	copy(out, validPhoneBrands)
	return out
}

// String implements fmt.Stringer.
func (b PhoneBrand) String() string {
	return string(b)
}

// IsValid reports whether the value is a known PhoneBrand.
func (b PhoneBrand) IsValid() bool {
	for _, candidate := range validPhoneBrands {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParsePhoneBrand converts raw input into a PhoneBrand.
func ParsePhoneBrand(value string) (PhoneBrand, error) {
	for _, candidate := range validPhoneBrands {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid phone brand %q", value)
}
