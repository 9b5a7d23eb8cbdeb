package content

var (
	Owner = "Vishwa Rajkumar"

	// Tagline is typed out character by character in the hero section.
	Tagline = "Full-Stack Developer | Critical Thinker"

	AboutMe = []string{
		`I'm a passionate Full-Stack Developer dedicated to building clean, responsive, and user-focused 
	web applications. I enjoy turning ideas into real, functional products with modern tools and technologies.`,

		`As a Critical Thinker, I approach challenges with creativity and logic. I'm always learning and 
	refining my skills to create smooth, scalable, and meaningful digital experiences.`,
	}

	SkillsIntro = `A comprehensive overview of my technical expertise and proficiency across different 
	technologies and tools.`

	ProjectsIntro = `A showcase of my recent work spanning full-stack development, blockchain technology, 
	and mobile applications.`

	ResumePath = "/static/vishwa-resume.pdf"
)
