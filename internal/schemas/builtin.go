package schemas

// schema names
const (
	Case                = "case"
	MortgageApplication = "mortgage_application"
	Invoice             = "invoice"
	Appointment         = "appointment"
	Broker              = "broker"
	Branch              = "branch"
	Bank                = "bank"
	Login               = "login"
)

// the API returns numeric ids on some endpoints and string ids on others
const idProperty = `"id": {"type": ["string", "integer"]}`

var builtin = map[string]string{
	Case: `{
		"type": "object",
		"required": ["id"],
		"properties": {
			` + idProperty + `,
			"reference": {"type": ["string", "null"]},
			"status": {"type": ["string", "null"]},
			"property_address": {"type": ["string", "object", "null"]}
		}
	}`,
	MortgageApplication: `{
		"type": "object",
		"required": ["id"],
		"properties": {
			` + idProperty + `,
			"case_id": {"type": ["string", "integer", "null"]},
			"status": {"type": ["string", "null"]},
			"loan_amount": {"type": ["number", "string", "null"]}
		}
	}`,
	Invoice: `{
		"type": "object",
		"required": ["id"],
		"properties": {
			` + idProperty + `,
			"number": {"type": ["string", "integer", "null"]},
			"status": {"type": ["string", "null"]},
			"total": {"type": ["number", "string", "null"]}
		}
	}`,
	Appointment: `{
		"type": "object",
		"required": ["id"],
		"properties": {
			` + idProperty + `,
			"starts_at": {"type": ["string", "null"]},
			"status": {"type": ["string", "null"]}
		}
	}`,
	Broker: `{
		"type": "object",
		"required": ["id"],
		"properties": {
			` + idProperty + `,
			"name": {"type": ["string", "null"]},
			"email": {"type": ["string", "null"]}
		}
	}`,
	Branch: `{
		"type": "object",
		"required": ["id"],
		"properties": {
			` + idProperty + `,
			"name": {"type": ["string", "null"]}
		}
	}`,
	Bank: `{
		"type": "object",
		"required": ["id"],
		"properties": {
			` + idProperty + `,
			"name": {"type": ["string", "null"]}
		}
	}`,
	Login: `{
		"type": "object",
		"required": ["token"],
		"properties": {
			"token": {"type": "string", "minLength": 1},
			"user": {"type": ["object", "null"]}
		}
	}`,
}
