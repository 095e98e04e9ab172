package internal

import "github.com/lychee-technology/filterdetect"

// mediaTypeToFormat maps package media types to format identifiers. Lookups are exact.
var mediaTypeToFormat = map[string]string{
	filterdetect.MediaTypeODText:                 "writer8",
	filterdetect.MediaTypeODTextTemplate:         "writer8_template",
	filterdetect.MediaTypeODTextWeb:              "writerweb8_writer_template",
	filterdetect.MediaTypeODTextMaster:           "writerglobal8",
	filterdetect.MediaTypeODTextMasterTemplate:   "writerglobal8_template",
	filterdetect.MediaTypeODGraphics:             filterdetect.FormatDraw8,
	filterdetect.MediaTypeODGraphicsTemplate:     filterdetect.FormatDraw8Template,
	filterdetect.MediaTypeODPresentation:         "impress8",
	filterdetect.MediaTypeODPresentationTemplate: "impress8_template",
	filterdetect.MediaTypeODSpreadsheet:          "calc8",
	filterdetect.MediaTypeODSpreadsheetTemplate:  "calc8_template",
	filterdetect.MediaTypeODChart:                "chart8",
	filterdetect.MediaTypeODFormula:              "math8",
	filterdetect.MediaTypeSunReportChart:         "StarBaseReportChart",
	filterdetect.MediaTypeSunWriter:              "writer_StarOffice_XML_Writer",
	filterdetect.MediaTypeSunWriterTemplate:      "writer_StarOffice_XML_Writer_Template",
	filterdetect.MediaTypeSunWriterWeb:           "writer_web_StarOffice_XML_Writer_Web_Template",
	filterdetect.MediaTypeSunWriterGlobal:        "writer_globaldocument_StarOffice_XML_Writer_GlobalDocument",
	filterdetect.MediaTypeSunDraw:                "draw_StarOffice_XML_Draw",
	filterdetect.MediaTypeSunDrawTemplate:        "draw_StarOffice_XML_Draw_Template",
	filterdetect.MediaTypeSunImpress:             "impress_StarOffice_XML_Impress",
	filterdetect.MediaTypeSunImpressTemplate:     "impress_StarOffice_XML_Impress_Template",
	filterdetect.MediaTypeSunCalc:                "calc_StarOffice_XML_Calc",
	filterdetect.MediaTypeSunCalcTemplate:        "calc_StarOffice_XML_Calc_Template",
	filterdetect.MediaTypeSunChart:               "chart_StarOffice_XML_Chart",
	filterdetect.MediaTypeSunMath:                "math_StarOffice_XML_Math",
}

// FormatForMediaType returns the format identifier of a package media type, or "".
// In embedded mode draw templates resolve to plain drawings.
func FormatForMediaType(mediaType string, embedded bool) string {
	format := mediaTypeToFormat[mediaType]
	if embedded && format == filterdetect.FormatDraw8Template {
		return filterdetect.FormatDraw8
	}
	return format
}

// KnownMediaTypes returns a copy of the media type table.
func KnownMediaTypes() map[string]string {
	out := make(map[string]string, len(mediaTypeToFormat))
	for k, v := range mediaTypeToFormat {
		out[k] = v
	}
	return out
}
