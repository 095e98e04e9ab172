package filterdetect

// Package media types recognized by the storage detector.
const (
	MediaTypeODText                 = "application/vnd.oasis.opendocument.text"
	MediaTypeODTextTemplate         = "application/vnd.oasis.opendocument.text-template"
	MediaTypeODTextWeb              = "application/vnd.oasis.opendocument.text-web"
	MediaTypeODTextMaster           = "application/vnd.oasis.opendocument.text-master"
	MediaTypeODTextMasterTemplate   = "application/vnd.oasis.opendocument.text-master-template"
	MediaTypeODGraphics             = "application/vnd.oasis.opendocument.graphics"
	MediaTypeODGraphicsTemplate     = "application/vnd.oasis.opendocument.graphics-template"
	MediaTypeODPresentation         = "application/vnd.oasis.opendocument.presentation"
	MediaTypeODPresentationTemplate = "application/vnd.oasis.opendocument.presentation-template"
	MediaTypeODSpreadsheet          = "application/vnd.oasis.opendocument.spreadsheet"
	MediaTypeODSpreadsheetTemplate  = "application/vnd.oasis.opendocument.spreadsheet-template"
	MediaTypeODChart                = "application/vnd.oasis.opendocument.chart"
	MediaTypeODFormula              = "application/vnd.oasis.opendocument.formula"
	MediaTypeSunReportChart         = "application/vnd.sun.xml.report.chart"
	MediaTypeSunWriter              = "application/vnd.sun.xml.writer"
	MediaTypeSunWriterTemplate      = "application/vnd.sun.xml.writer.template"
	MediaTypeSunWriterWeb           = "application/vnd.sun.xml.writer.web"
	MediaTypeSunWriterGlobal        = "application/vnd.sun.xml.writer.global"
	MediaTypeSunDraw                = "application/vnd.sun.xml.draw"
	MediaTypeSunDrawTemplate        = "application/vnd.sun.xml.draw.template"
	MediaTypeSunImpress             = "application/vnd.sun.xml.impress"
	MediaTypeSunImpressTemplate     = "application/vnd.sun.xml.impress.template"
	MediaTypeSunCalc                = "application/vnd.sun.xml.calc"
	MediaTypeSunCalcTemplate        = "application/vnd.sun.xml.calc.template"
	MediaTypeSunChart               = "application/vnd.sun.xml.chart"
	MediaTypeSunMath                = "application/vnd.sun.xml.math"
)

// Format identifiers that need special handling.
const (
	FormatDraw8         = "draw8"
	FormatDraw8Template = "draw8_template"
)

// Service identity of the storage detector.
const (
	StorageFilterDetectImplementationName = "com.sun.star.comp.filters.StorageFilterDetect"
	ExtendedTypeDetectionService          = "com.sun.star.document.ExtendedTypeDetection"
)
