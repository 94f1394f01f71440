package service

import (
	"fmt"
	"learner_dashboard/internal/model"
)

func weeks(titles ...string) []model.ParcoursWeek {
	out := make([]model.ParcoursWeek, 0, model.WeeksPerMonth)
	for i := 0; i < model.WeeksPerMonth; i++ {
		title := fmt.Sprintf("Semaine %d", i+1)
		if i < len(titles) {
			title = titles[i]
		}
		out = append(out, model.ParcoursWeek{
			Number:     i + 1,
			Title:      title,
			Milestones: []string{title},
		})
	}
	return out
}

// DefaultCatalog 内置的学习路径
func DefaultCatalog() []model.Parcours {
	return []model.Parcours{
		{
			ID:             "fondamentaux",
			Name:           "Fondamentaux du développement web",
			Description:    "Trois mois pour acquérir les bases du HTML, du CSS et du JavaScript.",
			RequiredLevels: []uint{1, 2, 3},
			Months: []model.ParcoursMonth{
				{
					Number:  1,
					Title:   "HTML et CSS",
					Weeks:   weeks("Structure d'une page", "Mise en forme", "Flexbox et grilles", "Projet : page de présentation"),
					Courses: []model.CourseRef{{CourseID: 101, Required: true}, {CourseID: 102, Required: false}},
				},
				{
					Number:  2,
					Title:   "JavaScript",
					Weeks:   weeks("Variables et fonctions", "Le DOM", "Événements", "Projet : quiz interactif"),
					Courses: []model.CourseRef{{CourseID: 103, Required: true}},
				},
				{
					Number:  3,
					Title:   "Projet final",
					Weeks:   weeks("Cahier des charges", "Maquette", "Développement", "Mise en ligne"),
					Courses: []model.CourseRef{{CourseID: 104, Required: true}, {CourseID: 105, Required: false}},
				},
			},
		},
		{
			ID:             "data",
			Name:           "Initiation à l'analyse de données",
			Description:    "Deux mois pour manipuler des données avec un tableur puis avec Python.",
			RequiredLevels: []uint{2, 3},
			Months: []model.ParcoursMonth{
				{
					Number:  1,
					Title:   "Tableurs et statistiques",
					Weeks:   weeks("Formules", "Tableaux croisés", "Graphiques", "Statistiques descriptives"),
					Courses: []model.CourseRef{{CourseID: 201, Required: true}},
				},
				{
					Number:  2,
					Title:   "Python pour les données",
					Weeks:   weeks("Bases de Python", "pandas", "Visualisation", "Projet d'analyse"),
					Courses: []model.CourseRef{{CourseID: 202, Required: true}, {CourseID: 203, Required: false}},
				},
			},
		},
		{
			ID:             "expert",
			Name:           "Parcours expert back-end",
			Description:    "Quatre mois d'architecture, de bases de données et de déploiement.",
			RequiredLevels: []uint{3},
			Months: []model.ParcoursMonth{
				{Number: 1, Title: "API REST", Weeks: weeks(), Courses: []model.CourseRef{{CourseID: 301, Required: true}}},
				{Number: 2, Title: "Bases de données", Weeks: weeks(), Courses: []model.CourseRef{{CourseID: 302, Required: true}}},
				{Number: 3, Title: "Tests et qualité", Weeks: weeks(), Courses: []model.CourseRef{{CourseID: 303, Required: true}}},
				{Number: 4, Title: "Déploiement", Weeks: weeks(), Courses: []model.CourseRef{{CourseID: 304, Required: true}}},
			},
		},
	}
}
