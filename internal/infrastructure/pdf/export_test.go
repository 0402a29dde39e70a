package pdf

var FormatMoney = formatMoney
