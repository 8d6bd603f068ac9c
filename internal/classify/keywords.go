package classify

import "regexp"

// incomeKeywords and expenseKeywords feed both the direction score and the
// fallback transaction check.
var incomeKeywords = []string{
	"depósito", "deposito", "abono", "recibido", "transferencia recibida",
	"pago recibido", "ingreso", "nómina", "nomina", "sueldo",
}

var expenseKeywords = []string{
	"cargo", "compra", "pago", "retiro", "transferencia enviada",
	"débito", "debito", "cobro", "factura", "egreso", "giro",
	"cuota", "comisión", "comision", "mantención", "mantencion",
}

// requiredTransactionPhrases are strong completion signals: any one of them
// accepts the message outright.
var requiredTransactionPhrases = []string{
	// Notificaciones de transacciones
	"compra aprobada", "compra realizada", "cargo realizado", "pago exitoso",
	"transferencia exitosa", "transferencia realizada", "tef realizada",
	"abono realizado", "depósito realizado", "giro realizado",
	"cuota pagada", "pago de cuota", "débito automático",
	// Indicadores de monto con contexto de transacción
	"monto transferido", "monto de la compra", "monto de la transacción",
	// Notificaciones bancarias típicas de transacción (no informativas)
	"has realizado una", "se ha realizado una", "hemos realizado",
	"desde tu cuenta corriente", "desde tu cuenta vista",
	// Comprobantes de pago
	"comprobante de pago", "comprobante de transferencia",
	"voucher de compra", "recibo de pago",
	// Boletas y facturas (documentos de pago real)
	"boleta electrónica", "factura electrónica",
	// PAC y débitos
	"pac realizado", "débito realizado", "cargo automático realizado",
}

// marketingExclusionPhrases reject promotional and informational mail before
// any acceptance rule runs.
var marketingExclusionPhrases = []string{
	// Marketing y promociones
	"promoción", "promocion", "oferta especial", "descuento exclusivo",
	"solo por hoy", "aprovecha", "no te pierdas", "beneficio exclusivo",
	"oportunidad", "exclusivo para ti", "te invitamos",
	// Newsletters y suscripciones
	"newsletter", "suscríbete", "suscribete", "boletin",
	// Encuestas y feedback
	"encuesta", "evalúa", "califica tu experiencia", "tu opinión",
	// Verificación de cuenta
	"actualiza tus datos", "verifica tu", "confirma tu correo",
	"bienvenido a", "gracias por registrarte", "activar cuenta",
	// Términos legales
	"términos y condiciones han cambiado", "política de privacidad",
	// Cartolas y resúmenes (no son transacciones individuales)
	"estado de cuenta disponible", "tu cartola", "resumen mensual",
	"cartola trimestral", "cartola mensual", "resumen de cuenta",
	// Programas de puntos y fidelización
	"pesos mi club", "mi club", "puntos acumulados", "canjea tus puntos",
	"beneficios cmr", "recuperar los beneficios", "acumular puntos",
	// Concursos y sorteos
	"gana entradas", "participa", "sorteo", "concurso",
	"últimos días para ganar",
	// Cotizaciones
	"cotización", "cotizacion", "cotiza", "simula tu crédito",
	// Ofertas de productos financieros
	"depósito a plazo", "deposito a plazo", "tasa anual", "nuevo producto",
	"te ofrecemos", "conoce nuestro", "descubre",
	// Campañas solidarias
	"apoyemos", "donación", "donacion", "causa solidaria",
	// Fidelización
	"no pierdas esta oportunidad", "imaginas perder", "podrías perder",
	// Campañas estacionales
	"empezó el verano", "este verano", "estas vacaciones",
	// Invitaciones
	"te invitamos a ser parte", "únete a", "forma parte de",
	// Mensajes promocionales de regalos
	"mejor regalo para tu hijo", "regalo para tu hijo",
}

// creditOfferExclusionPhrases catch credit offers that read like
// transactions but are not.
var creditOfferExclusionPhrases = []string{
	"preaprobado", "pre aprobado", "pre-aprobado",
	"crédito preaprobado", "credito preaprobado",
	"crédito aprobado", "credito aprobado",
	"te aprobamos", "te preaprobamos",
	"línea de crédito", "linea de credito",
	"cupo aprobado", "avance aprobado",
	"simula tu crédito", "simula tu credito",
	"solicita tu crédito", "solicita tu credito",
	"oferta de crédito", "oferta de credito",
	"aprobación de crédito", "aprobacion de credito",
}

var creditOfferExclusionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)pre\s*-?\s*aprobado`),
	regexp.MustCompile(`(?i)cr[eé]dito\s+aprobado`),
	regexp.MustCompile(`(?i)aprobado\s+tu\s+cr[eé]dito`),
	regexp.MustCompile(`(?i)te\s+aprobamos\s+un?\s+cr[eé]dito`),
	regexp.MustCompile(`(?i)l[ií]nea\s+de\s+cr[eé]dito`),
	regexp.MustCompile(`(?i)cupo\s+aprobado`),
	regexp.MustCompile(`(?i)avance\s+aprobado`),
}

// marketingSubjectPatterns match subject shapes typical of campaigns.
var marketingSubjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^¡.*!$`),
	regexp.MustCompile(`(?i)últimos días`),
	regexp.MustCompile(`(?i)no te lo pierdas`),
	regexp.MustCompile(`(?i)especial para ti`),
	regexp.MustCompile(`(?i)te esperamos`),
	regexp.MustCompile(`(?i)mejor regalo para tu hijo`),
	regexp.MustCompile(`(?i)regalo para tu hijo`),
}

// transactionActionHints gate the fallback acceptance: generic financial
// vocabulary alone is not evidence of an actual movement.
var transactionActionHints = []string{
	"realizad", "pagad", "compr", "carg", "debit", "abon",
	"transferencia recibida", "transferencia enviada",
	"transferencia realizada",
	"te han transferido", "has recibido", "giro realizado", "retiro",
}

// definiteExpensePhrases and definiteIncomePhrases short-circuit direction
// detection before keyword scoring.
var definiteExpensePhrases = []string{
	"pago de cuota", "pago cuota", "pago exitoso", "compra aprobada",
	"cargo realizado", "débito automático", "debito automatico",
	"transferencia realizada", "transferencia exitosa", "tef realizada",
	"pago tarjeta", "pago de tarjeta", "retiro", "giro realizado",
	"cobro realizado", "factura pagada", "mantención", "comisión",
}

var definiteIncomePhrases = []string{
	"depósito recibido", "deposito recibido", "abono recibido",
	"transferencia recibida", "pago recibido", "ingreso recibido",
	"te han transferido", "has recibido", "nómina", "nomina", "sueldo",
}

var emojiPattern = regexp.MustCompile(
	`[\x{1F300}-\x{1F9FF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}\x{1F600}-\x{1F64F}\x{1F680}-\x{1F6FF}]`,
)
