package scheduler

// eventTemplate is one entry of the synthetic incident pool. Titles and
// descriptions are in French, matching what the facilitation UI renders.
type eventTemplate struct {
	category    string
	title       string
	description string
}

var templates = []eventTemplate{
	{
		category:    "reseau",
		title:       "Coupure réseau partielle",
		description: "Plusieurs équipes signalent des pertes de connectivité intermittentes sur le site principal.",
	},
	{
		category:    "reseau",
		title:       "Saturation de la bande passante",
		description: "Le lien principal vers le datacenter est saturé, les applications métier répondent par à-coups.",
	},
	{
		category:    "cyber",
		title:       "Campagne de phishing détectée",
		description: "Le SOC remonte une vague de courriels frauduleux ciblant les comptes de la direction.",
	},
	{
		category:    "cyber",
		title:       "Comportement anormal sur un serveur",
		description: "Un serveur de fichiers chiffre des documents à un rythme inhabituel, un poste est isolé par précaution.",
	},
	{
		category:    "energie",
		title:       "Basculement sur groupe électrogène",
		description: "Une microcoupure a déclenché le basculement électrique, l'autonomie est estimée à quatre heures.",
	},
	{
		category:    "batiment",
		title:       "Déclenchement d'alarme incendie",
		description: "L'alarme du bâtiment B s'est déclenchée, l'origine n'est pas encore confirmée par l'équipe sécurité.",
	},
	{
		category:    "communication",
		title:       "Sollicitation presse",
		description: "Un journaliste demande une réaction officielle sur des rumeurs circulant sur les réseaux sociaux.",
	},
	{
		category:    "communication",
		title:       "Rumeur interne en expansion",
		description: "Des messages contradictoires circulent entre services, les collaborateurs demandent une position claire.",
	},
	{
		category:    "logistique",
		title:       "Indisponibilité d'un prestataire clé",
		description: "Le prestataire d'infogérance est injoignable, son standard annonce un incident majeur de son côté.",
	},
	{
		category:    "rh",
		title:       "Absence de personnel critique",
		description: "Deux membres de l'astreinte technique sont injoignables, la chaîne d'escalade doit être revue.",
	},
}
