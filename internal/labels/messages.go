package labels

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
)

const keySummary = "summary"

var messages = map[language.Tag]map[string]string{
	language.English: {
		"light.sunny":    "Sunny",
		"light.cloudy":   "Cloudy",
		"light.overcast": "Overcast",
		"light.night":    "Night",
		"light.indoor":   "Indoor",

		"scene.sport":     "Sports",
		"scene.portrait":  "Portrait",
		"scene.landscape": "Landscape",
		"scene.macro":     "Macro",
		"scene.night":     "Night",

		"metering.evaluative":     "Evaluative",
		"metering.centerWeighted": "Center-weighted",
		"metering.spot":           "Spot",

		"sensor.fullFrame":        "Full frame",
		"sensor.mediumFormat":     "Medium format (full)",
		"sensor.mediumFormat4433": "Medium format 44x33",
		"sensor.apsc":             "APS-C",
		"sensor.micro43":          "Micro Four Thirds",
		"sensor.oneInch":          "1-inch",

		keySummary: "These settings suit %[1]s scenes shot in %[2]s light.\n\n" +
			"Use aperture %[3]s, shutter speed %[4]s and ISO %[5]s with %[6]s metering " +
			"and %[7]s exposure compensation.\n\n" +
			"This combination should give a balanced exposure and good image quality.",
	},
	language.SimplifiedChinese: {
		"light.sunny":    "晴天",
		"light.cloudy":   "多云",
		"light.overcast": "阴天",
		"light.night":    "夜间",
		"light.indoor":   "室内",

		"scene.sport":     "运动",
		"scene.portrait":  "人像",
		"scene.landscape": "风景",
		"scene.macro":     "微距",
		"scene.night":     "夜景",

		"metering.evaluative":     "评价测光",
		"metering.centerWeighted": "中央重点测光",
		"metering.spot":           "点测光",

		"sensor.fullFrame":        "全画幅",
		"sensor.mediumFormat":     "中画幅(完全)",
		"sensor.mediumFormat4433": "中画幅4433",
		"sensor.apsc":             "APS-C",
		"sensor.micro43":          "M4/3",
		"sensor.oneInch":          "1英寸",

		keySummary: "此参数配置适用于%[1]s场景，在%[2]s光线条件下拍摄。\n\n" +
			"使用光圈%[3]s，快门速度%[4]s，ISO感光度%[5]s，采用%[6]s，曝光补偿%[7]s。\n\n" +
			"这组参数可以帮助您获得平衡的曝光和良好的成像效果。",
	},
}

func mustBuild() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(Default()))
	for tag, entries := range messages {
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(fmt.Sprintf("labels: register %s %q: %v", tag, key, err))
			}
		}
	}
	return b
}
