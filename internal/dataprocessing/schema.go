package dataprocessing

import (
	"fmt"

	"supplypulse/pkg/contracts/domain"
)

// ColumnKind describes how a cell is parsed
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumber
	KindDate
	// KindPeriod keeps the cell as a period label and also sets the date
	// when the label parses as one. Labels without a year are valid.
	KindPeriod
)

// Target is the Record attribute a column populates
type Target string

const (
	TargetDate          Target = "date"
	TargetPromisedDate  Target = "promised_date"
	TargetDeliveredDate Target = "delivered_date"
	TargetOrganization  Target = "organization"
	TargetCategory      Target = "category"
	TargetArticle       Target = "article"
	TargetSupplier      Target = "supplier"
	TargetGroup         Target = "group"
	TargetEquipment     Target = "equipment"
	TargetCode          Target = "code"
	TargetStatus        Target = "status"
	TargetQuantity      Target = "quantity"
	TargetAmount        Target = "amount"
	TargetUnitPrice     Target = "unit_price"
)

// Column maps one source header to a Record attribute
type Column struct {
	Name     string
	Target   Target
	Kind     ColumnKind
	Required bool
}

// Schema is the declared layout of one dataset kind
type Schema struct {
	Kind            domain.DatasetKind
	PreferredSheets []string
	Columns         []Column
	// UnknownLabel replaces empty categorical cells
	UnknownLabel string
	// Derived fills a destination attribute from a source attribute when the
	// layout has no dedicated column for it (destination -> source)
	Derived map[Target]Target
}

// Required returns the names of required columns in declaration order
func (s Schema) Required() []string {
	var names []string
	for _, c := range s.Columns {
		if c.Required {
			names = append(names, c.Name)
		}
	}
	return names
}

// WithUnknownLabel returns a copy of the schema using a different default label
func (s Schema) WithUnknownLabel(label string) Schema {
	if label != "" {
		s.UnknownLabel = label
	}
	return s
}

func required(name string, target Target, kind ColumnKind) Column {
	return Column{Name: name, Target: target, Kind: kind, Required: true}
}

func optional(name string, target Target, kind ColumnKind) Column {
	return Column{Name: name, Target: target, Kind: kind}
}

var schemas = map[domain.DatasetKind]Schema{
	domain.KindConsumption: {
		Kind: domain.KindConsumption,
		Columns: []Column{
			required("Date", TargetDate, KindDate),
			required("Org_Log", TargetOrganization, KindText),
			required("Desc_Cat", TargetCategory, KindText),
			required("Article", TargetArticle, KindText),
			required("Qte", TargetQuantity, KindNumber),
			required("Montant", TargetAmount, KindNumber),
			optional("Fournisseur", TargetSupplier, KindText),
		},
		UnknownLabel: domain.DefaultUnknown,
	},
	domain.KindProcurement: {
		Kind: domain.KindProcurement,
		Columns: []Column{
			required("article_desc", TargetArticle, KindText),
			required("quantite", TargetQuantity, KindNumber),
			required("prix_unitaire", TargetUnitPrice, KindNumber),
			required("montant", TargetAmount, KindNumber),
			required("fournisseur", TargetSupplier, KindText),
			required("date_commande", TargetDate, KindDate),
			required("date_livraison", TargetDeliveredDate, KindDate),
			required("date_promesse", TargetPromisedDate, KindDate),
			required("statut_approbation", TargetStatus, KindText),
			required("categorie_achat_1", TargetCategory, KindText),
			optional("organisation", TargetOrganization, KindText),
			optional("article", TargetCode, KindText),
		},
		UnknownLabel: domain.DefaultUnknown,
	},
	domain.KindEquipment: {
		Kind:            domain.KindEquipment,
		PreferredSheets: []string{"BASE DE DONNEE"},
		Columns: []Column{
			required("Date", TargetDate, KindDate),
			required("CATEGORIE", TargetGroup, KindText),
			required("Desc_Cat", TargetCategory, KindText),
			required("Desc_CA", TargetEquipment, KindText),
			required("Montant", TargetAmount, KindNumber),
			optional("Qte", TargetQuantity, KindNumber),
			optional("Org_Log", TargetOrganization, KindText),
		},
		UnknownLabel: domain.DefaultUnknown,
		Derived:      map[Target]Target{TargetArticle: TargetEquipment},
	},
	domain.KindStock: {
		Kind: domain.KindStock,
		Columns: []Column{
			required("article", TargetCode, KindText),
			required("DES_ARTICLE", TargetArticle, KindText),
			required("GROUPE", TargetGroup, KindText),
			required("QUANTITE", TargetQuantity, KindNumber),
			required("MONTANT", TargetAmount, KindNumber),
			required("Mois", TargetDate, KindPeriod),
		},
		UnknownLabel: domain.DefaultUnknown,
		Derived:      map[Target]Target{TargetCategory: TargetGroup},
	},
}

// SchemaFor returns the declared schema of a dataset kind
func SchemaFor(kind domain.DatasetKind) (Schema, error) {
	s, ok := schemas[kind]
	if !ok {
		return Schema{}, fmt.Errorf("unknown dataset kind: %q", kind)
	}
	return s, nil
}
