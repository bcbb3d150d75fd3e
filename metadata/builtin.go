package metadata

import "github.com/mohitkumar/loanwizard/model"

var builtinDefinitions = []model.WizardDefinition{
	{
		Type:  model.WIZARD_TYPE_MORTGAGE_APPLICATION,
		Title: "Mortgage Application",
		Steps: []model.StepTemplate{
			{
				Id:             "personal_info",
				Title:          "Personal Information",
				Description:    "Your name and how we can reach you.",
				TargetProgress: 20,
				Fields:         []string{"$.full_name", "$.phone", "$.email"},
			},
			{
				Id:             "employment",
				Title:          "Employment & Income",
				Description:    "Where you work and what you earn.",
				TargetProgress: 40,
				Fields:         []string{"$.annual_income", "$.employer", "$.employment_type"},
			},
			{
				Id:             "property",
				Title:          "Property Details",
				Description:    "The home you want to buy.",
				TargetProgress: 60,
				Fields:         []string{"$.purchase_price", "$.property_type", "$.property_location"},
			},
			{
				Id:             "financial",
				Title:          "Financial Information",
				Description:    "Down payment and credit profile.",
				TargetProgress: 80,
				Fields:         []string{"$.down_payment", "$.credit_score"},
			},
			{
				Id:             "review",
				Title:          "Review & Submit",
				Description:    "Check your answers and submit the application.",
				TargetProgress: 100,
			},
		},
	},
	{
		Type:  model.WIZARD_TYPE_PRE_QUALIFICATION,
		Title: "Pre-Qualification",
		Steps: []model.StepTemplate{
			{
				Id:             "income",
				Title:          "Income",
				Description:    "Your yearly income before taxes.",
				TargetProgress: 35,
				Fields:         []string{"$.annual_income", "$.employment_type"},
			},
			{
				Id:             "credit",
				Title:          "Credit & Savings",
				Description:    "Approximate credit score and down payment.",
				TargetProgress: 70,
				Fields:         []string{"$.credit_score", "$.down_payment"},
			},
			{
				Id:             "estimate",
				Title:          "Estimate",
				Description:    "See how much you may qualify for.",
				TargetProgress: 100,
				Fields:         []string{"$.purchase_price"},
			},
		},
	},
	{
		Type:  model.WIZARD_TYPE_DOCUMENT_UPLOAD,
		Title: "Document Upload",
		Steps: []model.StepTemplate{
			{
				Id:             "identity",
				Title:          "Identity",
				Description:    "Driver's license or passport.",
				TargetProgress: 25,
			},
			{
				Id:             "income_documents",
				Title:          "Income Documents",
				Description:    "Recent pay stubs and W-2 forms.",
				TargetProgress: 50,
			},
			{
				Id:             "bank_statements",
				Title:          "Bank Statements",
				Description:    "The last two months of statements.",
				TargetProgress: 75,
			},
			{
				Id:             "confirmation",
				Title:          "Confirmation",
				Description:    "Confirm every document has been received.",
				TargetProgress: 100,
			},
		},
	},
}
