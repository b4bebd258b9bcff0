package sync

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/biter777/countries"
	"github.com/tidwall/gjson"
	"github.com/ttacon/libphonenumber"
	"go.uber.org/zap"
)

// Modifiers available to capture attribute paths, e.g. "primaryAddress.country|@countryName".
func init() {

	gjson.AddModifier("countryName", func(json, arg string) string {
		s := gjson.Parse(json).String()
		c := countries.ByName(s) // will match on Alpha-2 / Alpha-3 / Name
		if countries.Unknown == c {
			return ""
		}
		return fmt.Sprintf(`"%s"`, c.String()) // returns Country Name
	})

	gjson.AddModifier("countryCode", func(json, arg string) string {
		s := gjson.Parse(json).String()
		c := countries.ByName(s)
		if countries.Unknown == c {
			return ""
		}
		return fmt.Sprintf(`"%s"`, c.Alpha2())
	})

	gjson.AddModifier("phone", func(json, arg string) string {
		res := gjson.Parse(json)
		if res.Type == gjson.Null || res.String() == "" {
			return ""
		}
		countryCode := arg
		// if present, remove extra " from number
		number := strings.Trim(res.String(), `"`)
		i, err := strconv.Atoi(countryCode)
		if err == nil {
			var num *libphonenumber.PhoneNumber
			num, err = libphonenumber.Parse(number, libphonenumber.GetRegionCodeForCountryCode(i))
			if err == nil {
				// sailthru stores phone numbers in E.164
				return fmt.Sprintf(`"%s"`, libphonenumber.Format(num, libphonenumber.E164))
			}
		}
		zap.L().Warn("failed to parse phone number", zap.String("number", number), zap.String("country_code", arg), zap.Error(err))
		return ""
	})

	gjson.AddModifier("contains", func(json, arg string) string {
		res := gjson.Parse(json)
		if res.IsArray() {
			values := res.Array()
			for _, v := range values {
				if strings.Contains(v.String(), arg) {
					return fmt.Sprintf("%t", true)
				}
			}
			return fmt.Sprintf("%t", false)
		}
		return fmt.Sprintf("%t", strings.Contains(res.String(), arg))
	})

}
