// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import "github.com/vorlif/spreak/localize"

var classIcons = map[string]string{
	ClassStopped: "🅿️",
	ClassSlow:    "🚶",
	ClassMoving:  "🚗",
	ClassFast:    "🚀",
}

var directionIcons = map[string]string{
	"N":  "↑",
	"NE": "↗",
	"E":  "→",
	"SE": "↘",
	"S":  "↓",
	"SW": "↙",
	"W":  "←",
	"NW": "↖",
}

var i18nVars = map[string]localize.MsgID{
	"latitude":  "Latitude",
	"longitude": "Longitude",
	"lat":       "Lat",
	"lng":       "Lng",
	"speed":     "Speed",
	"heading":   "Heading",
	"altitude":  "Altitude",
	"accuracy":  "Accuracy",
	"source":    "Source",
	"last fix":  "Last fix",
	"estimated": "estimated",
	"reported":  "reported",
	"paused":    "paused",
	"stale":     "stale",
}
