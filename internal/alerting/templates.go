package alerting

// Template describes an alert type for the rule editor: its default
// conditions, the operators it may use and the variables its message can
// reference.
type Template struct {
	Type                 AlertType      `json:"type"`
	Name                 string         `json:"name"`
	Description          string         `json:"description"`
	DefaultConditions    map[string]any `json:"defaultConditions"`
	AvailableComparisons []Comparison   `json:"availableComparisons"`
	Variables            []Variable     `json:"variables"`
	MessageTemplate      string         `json:"messageTemplate"`
	Examples             []string       `json:"examples"`
}

// Variable is a placeholder usable in a message template.
type Variable struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Type        string `json:"type"` // "number", "percent", "string", "date", "list"
	Description string `json:"description,omitempty"`
}

// ComparisonOption pairs an operator with its display label.
type ComparisonOption struct {
	Value Comparison `json:"value"`
	Label string     `json:"label"`
}

var (
	lowerOperators  = []Comparison{LessThan, LessThanOrEqual, Equals}
	higherOperators = []Comparison{GreaterThan, GreaterThanOrEqual, Equals}
	allOperators    = []Comparison{LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual, Equals}
)

var templateOrder = []AlertType{
	TypeTrainCoverage,
	TypeInactiveMembers,
	TypeMissingConductor,
	TypeMemberThreshold,
	TypePowerThreshold,
	TypeEventReminder,
	TypeTrainDeparture,
	TypeManualMessage,
}

var templates = map[AlertType]Template{
	TypeTrainCoverage: {
		Type:        TypeTrainCoverage,
		Name:        "Couverture des trains",
		Description: "Pourcentage des trains des 14 prochains jours ayant un conducteur assigné",
		DefaultConditions: map[string]any{
			"threshold":  80,
			"comparison": string(LessThan),
		},
		AvailableComparisons: lowerOperators,
		Variables: []Variable{
			{Key: "coveragePercent", Label: "Couverture", Type: "percent"},
			{Key: "totalTrains", Label: "Trains planifiés", Type: "number"},
			{Key: "assignedTrains", Label: "Trains avec conducteur", Type: "number"},
			{Key: "missingTrains", Label: "Trains sans conducteur", Type: "number"},
			{Key: "threshold", Label: "Seuil", Type: "number"},
		},
		MessageTemplate: "Couverture des trains: {coveragePercent} ({assignedTrains}/{totalTrains} trains avec conducteur). Condition: {comparison} {threshold}%.",
		Examples: []string{
			"Alerter quand moins de 80% des trains ont un conducteur",
		},
	},
	TypeInactiveMembers: {
		Type:        TypeInactiveMembers,
		Name:        "Membres inactifs",
		Description: "Nombre de membres actifs sans activité depuis la période donnée",
		DefaultConditions: map[string]any{
			"threshold":  5,
			"comparison": string(GreaterThan),
			"timeframe":  7,
		},
		AvailableComparisons: higherOperators,
		Variables: []Variable{
			{Key: "inactiveCount", Label: "Membres inactifs", Type: "number"},
			{Key: "timeframe", Label: "Période (jours)", Type: "number"},
			{Key: "inactiveMembers", Label: "Pseudos", Type: "list"},
		},
		MessageTemplate: "{inactiveCount} membre(s) inactif(s) depuis plus de {timeframe} jours: {inactiveMembers}.",
		Examples: []string{
			"Alerter quand plus de 5 membres sont inactifs depuis 7 jours",
		},
	},
	TypeMissingConductor: {
		Type:        TypeMissingConductor,
		Name:        "Conducteurs manquants",
		Description: "Créneaux hebdomadaires de train sans conducteur",
		DefaultConditions: map[string]any{
			"threshold":  0,
			"comparison": string(GreaterThan),
		},
		AvailableComparisons: higherOperators,
		Variables: []Variable{
			{Key: "missingCount", Label: "Créneaux sans conducteur", Type: "number"},
			{Key: "totalSlots", Label: "Créneaux", Type: "number"},
			{Key: "missingDays", Label: "Jours concernés", Type: "list"},
		},
		MessageTemplate: "{missingCount} créneau(x) de train sans conducteur: {missingDays}.",
		Examples: []string{
			"Alerter dès qu'un créneau n'a pas de conducteur",
		},
	},
	TypeMemberThreshold: {
		Type:        TypeMemberThreshold,
		Name:        "Effectif de l'alliance",
		Description: "Nombre de membres actifs comparé à la capacité de l'alliance",
		DefaultConditions: map[string]any{
			"threshold":  80,
			"comparison": string(LessThan),
		},
		AvailableComparisons: allOperators,
		Variables: []Variable{
			{Key: "memberCount", Label: "Membres actifs", Type: "number"},
			{Key: "capacity", Label: "Capacité", Type: "number"},
			{Key: "fillPercent", Label: "Remplissage", Type: "percent"},
			{Key: "threshold", Label: "Seuil", Type: "number"},
		},
		MessageTemplate: "L'alliance compte {memberCount} membres actifs sur {capacity} ({fillPercent}). Condition: {comparison} {threshold}.",
		Examples: []string{
			"Alerter quand l'alliance passe sous 80 membres",
		},
	},
	TypePowerThreshold: {
		Type:        TypePowerThreshold,
		Name:        "Puissance de l'alliance",
		Description: "Puissance totale des membres actifs",
		DefaultConditions: map[string]any{
			"threshold":  1000000000,
			"comparison": string(LessThan),
		},
		AvailableComparisons: allOperators,
		Variables: []Variable{
			{Key: "totalPower", Label: "Puissance totale", Type: "number"},
			{Key: "averagePower", Label: "Puissance moyenne", Type: "number"},
			{Key: "memberCount", Label: "Membres actifs", Type: "number"},
			{Key: "threshold", Label: "Seuil", Type: "number"},
		},
		MessageTemplate: "Puissance totale de l'alliance: {totalPower} (moyenne {averagePower} sur {memberCount} membres). Condition: {comparison} {threshold}.",
		Examples: []string{
			"Alerter quand la puissance totale passe sous 1 milliard",
		},
	},
	TypeEventReminder: {
		Type:        TypeEventReminder,
		Name:        "Rappel d'événement",
		Description: "Événements commençant dans les prochaines heures",
		DefaultConditions: map[string]any{
			"threshold":  0,
			"comparison": string(GreaterThan),
			"timeframe":  24,
		},
		AvailableComparisons: higherOperators,
		Variables: []Variable{
			{Key: "eventCount", Label: "Événements à venir", Type: "number"},
			{Key: "eventTitle", Label: "Prochain événement", Type: "string"},
			{Key: "eventType", Label: "Type", Type: "string"},
			{Key: "eventDate", Label: "Début", Type: "date"},
			{Key: "timeframe", Label: "Fenêtre (heures)", Type: "number"},
		},
		MessageTemplate: "Rappel: {eventTitle} ({eventType}) commence le {eventDate}. {eventCount} événement(s) dans les {timeframe} prochaines heures.",
		Examples: []string{
			"Rappeler les événements qui commencent dans les 24 heures",
		},
	},
	TypeTrainDeparture: {
		Type:        TypeTrainDeparture,
		Name:        "Départ de train",
		Description: "Trains avec conducteur qui partent dans les prochaines minutes",
		DefaultConditions: map[string]any{
			"threshold":     0,
			"comparison":    string(GreaterThan),
			"minutesBefore": 30,
		},
		AvailableComparisons: higherOperators,
		Variables: []Variable{
			{Key: "departureCount", Label: "Départs imminents", Type: "number"},
			{Key: "conductorName", Label: "Conducteur", Type: "string"},
			{Key: "departureTime", Label: "Heure de départ", Type: "string"},
			{Key: "minutesUntil", Label: "Minutes restantes", Type: "number"},
			{Key: "departures", Label: "Tous les départs", Type: "list"},
		},
		MessageTemplate: "Le train part dans {minutesUntil} minutes ({departureTime}) avec {conductorName} comme conducteur.",
		Examples: []string{
			"Prévenir 30 minutes avant chaque départ de train",
		},
	},
	TypeManualMessage: {
		Type:        TypeManualMessage,
		Name:        "Message manuel",
		Description: "Message libre envoyé à chaque vérification",
		DefaultConditions: map[string]any{
			"threshold":  true,
			"comparison": string(Equals),
			"title":      "Annonce",
			"message":    "",
		},
		AvailableComparisons: []Comparison{Equals},
		Variables: []Variable{
			{Key: "title", Label: "Titre", Type: "string"},
			{Key: "message", Label: "Message", Type: "string"},
		},
		MessageTemplate: "{message}",
		Examples: []string{
			"Annoncer un changement d'horaire à toute l'alliance",
		},
	},
}

// GetTemplate returns the template registered for t.
func GetTemplate(t AlertType) (Template, bool) {
	tpl, ok := templates[t]
	if !ok {
		return Template{}, false
	}
	tpl.DefaultConditions = cloneConditions(tpl.DefaultConditions)
	return tpl, true
}

// Templates returns every template in display order.
func Templates() []Template {
	out := make([]Template, 0, len(templateOrder))
	for _, t := range templateOrder {
		tpl, _ := GetTemplate(t)
		out = append(out, tpl)
	}
	return out
}

// ComparisonOptions returns the operators of t with labels in the given locale.
func ComparisonOptions(t AlertType, r *Renderer) []ComparisonOption {
	tpl, ok := templates[t]
	if !ok {
		return nil
	}
	out := make([]ComparisonOption, 0, len(tpl.AvailableComparisons))
	for _, c := range tpl.AvailableComparisons {
		out = append(out, ComparisonOption{Value: c, Label: r.ComparisonLabel(c)})
	}
	return out
}

func cloneConditions(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
