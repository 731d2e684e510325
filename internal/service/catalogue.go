package service

import "github.com/prn-tf/academia/internal/domain"

// builtinCatalogue is the JNTUH B.Tech curriculum loaded by LoadCatalogue.
// Subjects with an empty department are common to every department.
var builtinCatalogue = []domain.Subject{
	// Common
	{Code: "MA101", Name: "Mathematics-I", Department: "", Semester: 1, Credits: 4},
	{Code: "PH101", Name: "Applied Physics", Department: "", Semester: 1, Credits: 4},
	{Code: "CH101", Name: "Applied Chemistry", Department: "", Semester: 1, Credits: 4},
	{Code: "EG101", Name: "Engineering Graphics", Department: "", Semester: 1, Credits: 4},
	{Code: "CS101", Name: "Programming for Problem Solving", Department: "", Semester: 1, Credits: 3},
	{Code: "EN101", Name: "English", Department: "", Semester: 1, Credits: 2},
	{Code: "MA102", Name: "Mathematics-II", Department: "", Semester: 2, Credits: 4},
	{Code: "PH102", Name: "Applied Physics Lab", Department: "", Semester: 2, Credits: 2},
	{Code: "CH102", Name: "Applied Chemistry Lab", Department: "", Semester: 2, Credits: 2},
	{Code: "ME101", Name: "Engineering Workshop", Department: "", Semester: 2, Credits: 2},
	{Code: "CS102", Name: "Programming for Problem Solving Lab", Department: "", Semester: 2, Credits: 2},
	{Code: "EN102", Name: "English Language Communication Skills Lab", Department: "", Semester: 2, Credits: 1},

	// CSE
	{Code: "CS201", Name: "Data Structures", Department: domain.DeptCSE, Semester: 3, Credits: 4},
	{Code: "CS202", Name: "Object Oriented Programming", Department: domain.DeptCSE, Semester: 3, Credits: 3},
	{Code: "CS203", Name: "Digital Logic Design", Department: domain.DeptCSE, Semester: 3, Credits: 3},
	{Code: "MA201", Name: "Discrete Mathematics", Department: domain.DeptCSE, Semester: 3, Credits: 4},
	{Code: "CS204", Name: "Computer Organization", Department: domain.DeptCSE, Semester: 3, Credits: 3},
	{Code: "CS301", Name: "Database Management Systems", Department: domain.DeptCSE, Semester: 4, Credits: 4},
	{Code: "CS302", Name: "Operating Systems", Department: domain.DeptCSE, Semester: 4, Credits: 3},
	{Code: "CS303", Name: "Design and Analysis of Algorithms", Department: domain.DeptCSE, Semester: 4, Credits: 4},
	{Code: "CS304", Name: "Software Engineering", Department: domain.DeptCSE, Semester: 4, Credits: 3},
	{Code: "CS305", Name: "Computer Networks", Department: domain.DeptCSE, Semester: 4, Credits: 3},
	{Code: "CS401", Name: "Compiler Design", Department: domain.DeptCSE, Semester: 5, Credits: 3},
	{Code: "CS402", Name: "Theory of Computation", Department: domain.DeptCSE, Semester: 5, Credits: 3},
	{Code: "CS403", Name: "Machine Learning", Department: domain.DeptCSE, Semester: 5, Credits: 3},
	{Code: "CS404", Name: "Web Technologies", Department: domain.DeptCSE, Semester: 5, Credits: 3},
	{Code: "CS405", Name: "Cryptography and Network Security", Department: domain.DeptCSE, Semester: 5, Credits: 3},
	{Code: "CS501", Name: "Mobile Application Development", Department: domain.DeptCSE, Semester: 6, Credits: 3},
	{Code: "CS502", Name: "Cloud Computing", Department: domain.DeptCSE, Semester: 6, Credits: 3},
	{Code: "CS503", Name: "Artificial Intelligence", Department: domain.DeptCSE, Semester: 6, Credits: 3},
	{Code: "CS504", Name: "Big Data Analytics", Department: domain.DeptCSE, Semester: 6, Credits: 3},
	{Code: "CS505", Name: "Internet of Things", Department: domain.DeptCSE, Semester: 6, Credits: 3},
	{Code: "CS601", Name: "Deep Learning", Department: domain.DeptCSE, Semester: 7, Credits: 3},
	{Code: "CS602", Name: "Blockchain Technology", Department: domain.DeptCSE, Semester: 7, Credits: 3},
	{Code: "CS603", Name: "Software Testing", Department: domain.DeptCSE, Semester: 7, Credits: 3},

	// ECE
	{Code: "EC201", Name: "Network Analysis", Department: domain.DeptECE, Semester: 3, Credits: 4},
	{Code: "EC202", Name: "Electronic Devices and Circuits", Department: domain.DeptECE, Semester: 3, Credits: 4},
	{Code: "EC203", Name: "Signals and Systems", Department: domain.DeptECE, Semester: 3, Credits: 3},
	{Code: "EC204", Name: "Electronic Circuit Analysis", Department: domain.DeptECE, Semester: 3, Credits: 3},
	{Code: "EC301", Name: "Analog Communications", Department: domain.DeptECE, Semester: 4, Credits: 4},
	{Code: "EC302", Name: "Digital Signal Processing", Department: domain.DeptECE, Semester: 4, Credits: 4},
	{Code: "EC303", Name: "Linear IC Applications", Department: domain.DeptECE, Semester: 4, Credits: 3},
	{Code: "EC304", Name: "Electromagnetic Theory", Department: domain.DeptECE, Semester: 4, Credits: 3},
	{Code: "EC401", Name: "Digital Communications", Department: domain.DeptECE, Semester: 5, Credits: 4},
	{Code: "EC402", Name: "Microprocessors and Microcontrollers", Department: domain.DeptECE, Semester: 5, Credits: 4},
	{Code: "EC403", Name: "VLSI Design", Department: domain.DeptECE, Semester: 5, Credits: 3},
	{Code: "EC404", Name: "Control Systems", Department: domain.DeptECE, Semester: 5, Credits: 3},
	{Code: "EC501", Name: "Wireless Communications", Department: domain.DeptECE, Semester: 6, Credits: 3},
	{Code: "EC502", Name: "Embedded Systems", Department: domain.DeptECE, Semester: 6, Credits: 3},
	{Code: "EC503", Name: "Optical Communications", Department: domain.DeptECE, Semester: 6, Credits: 3},
	{Code: "EC504", Name: "Radar Systems", Department: domain.DeptECE, Semester: 6, Credits: 3},

	// EEE
	{Code: "EE201", Name: "Electrical Circuit Analysis", Department: domain.DeptEEE, Semester: 3, Credits: 4},
	{Code: "EE202", Name: "Electrical Machines-I", Department: domain.DeptEEE, Semester: 3, Credits: 4},
	{Code: "EE203", Name: "Electromagnetic Fields", Department: domain.DeptEEE, Semester: 3, Credits: 3},
	{Code: "EE204", Name: "Electronic Devices and Circuits", Department: domain.DeptEEE, Semester: 3, Credits: 3},
	{Code: "EE301", Name: "Electrical Machines-II", Department: domain.DeptEEE, Semester: 4, Credits: 4},
	{Code: "EE302", Name: "Power Systems-I", Department: domain.DeptEEE, Semester: 4, Credits: 4},
	{Code: "EE303", Name: "Control Systems", Department: domain.DeptEEE, Semester: 4, Credits: 3},
	{Code: "EE304", Name: "Electrical Measurements", Department: domain.DeptEEE, Semester: 4, Credits: 3},
	{Code: "EE401", Name: "Power Electronics", Department: domain.DeptEEE, Semester: 5, Credits: 4},
	{Code: "EE402", Name: "Power Systems-II", Department: domain.DeptEEE, Semester: 5, Credits: 4},
	{Code: "EE403", Name: "Microprocessors and Microcontrollers", Department: domain.DeptEEE, Semester: 5, Credits: 3},
	{Code: "EE404", Name: "Electrical Machine Design", Department: domain.DeptEEE, Semester: 5, Credits: 3},
	{Code: "EE501", Name: "Renewable Energy Systems", Department: domain.DeptEEE, Semester: 6, Credits: 3},
	{Code: "EE502", Name: "High Voltage Engineering", Department: domain.DeptEEE, Semester: 6, Credits: 3},
	{Code: "EE503", Name: "Power System Protection", Department: domain.DeptEEE, Semester: 6, Credits: 3},
	{Code: "EE504", Name: "Electric Drives", Department: domain.DeptEEE, Semester: 6, Credits: 3},

	// MECH
	{Code: "ME201", Name: "Engineering Mechanics", Department: domain.DeptMECH, Semester: 3, Credits: 4},
	{Code: "ME202", Name: "Strength of Materials", Department: domain.DeptMECH, Semester: 3, Credits: 4},
	{Code: "ME203", Name: "Thermodynamics", Department: domain.DeptMECH, Semester: 3, Credits: 3},
	{Code: "ME204", Name: "Manufacturing Technology", Department: domain.DeptMECH, Semester: 3, Credits: 3},
	{Code: "ME301", Name: "Kinematics of Machinery", Department: domain.DeptMECH, Semester: 4, Credits: 4},
	{Code: "ME302", Name: "Fluid Mechanics", Department: domain.DeptMECH, Semester: 4, Credits: 4},
	{Code: "ME303", Name: "Metallurgy and Material Science", Department: domain.DeptMECH, Semester: 4, Credits: 3},
	{Code: "ME304", Name: "Thermal Engineering", Department: domain.DeptMECH, Semester: 4, Credits: 3},
	{Code: "ME401", Name: "Design of Machine Elements", Department: domain.DeptMECH, Semester: 5, Credits: 4},
	{Code: "ME402", Name: "Heat Transfer", Department: domain.DeptMECH, Semester: 5, Credits: 3},
	{Code: "ME403", Name: "Dynamics of Machinery", Department: domain.DeptMECH, Semester: 5, Credits: 3},
	{Code: "ME404", Name: "Metrology and Machine Tools", Department: domain.DeptMECH, Semester: 5, Credits: 3},
	{Code: "ME501", Name: "Automobile Engineering", Department: domain.DeptMECH, Semester: 6, Credits: 3},
	{Code: "ME502", Name: "CAD/CAM", Department: domain.DeptMECH, Semester: 6, Credits: 3},
	{Code: "ME503", Name: "Refrigeration and Air Conditioning", Department: domain.DeptMECH, Semester: 6, Credits: 3},
	{Code: "ME504", Name: "Industrial Engineering", Department: domain.DeptMECH, Semester: 6, Credits: 3},

	// CIVIL
	{Code: "CE201", Name: "Surveying", Department: domain.DeptCIVIL, Semester: 3, Credits: 4},
	{Code: "CE202", Name: "Building Materials and Construction", Department: domain.DeptCIVIL, Semester: 3, Credits: 4},
	{Code: "CE203", Name: "Engineering Mechanics", Department: domain.DeptCIVIL, Semester: 3, Credits: 3},
	{Code: "CE204", Name: "Strength of Materials", Department: domain.DeptCIVIL, Semester: 3, Credits: 4},
	{Code: "CE301", Name: "Structural Analysis", Department: domain.DeptCIVIL, Semester: 4, Credits: 4},
	{Code: "CE302", Name: "Fluid Mechanics", Department: domain.DeptCIVIL, Semester: 4, Credits: 4},
	{Code: "CE303", Name: "Concrete Technology", Department: domain.DeptCIVIL, Semester: 4, Credits: 3},
	{Code: "CE304", Name: "Geotechnical Engineering", Department: domain.DeptCIVIL, Semester: 4, Credits: 4},
	{Code: "CE401", Name: "Design of RC Structures", Department: domain.DeptCIVIL, Semester: 5, Credits: 4},
	{Code: "CE402", Name: "Transportation Engineering", Department: domain.DeptCIVIL, Semester: 5, Credits: 3},
	{Code: "CE403", Name: "Water Resources Engineering", Department: domain.DeptCIVIL, Semester: 5, Credits: 3},
	{Code: "CE404", Name: "Environmental Engineering", Department: domain.DeptCIVIL, Semester: 5, Credits: 3},
	{Code: "CE501", Name: "Design of Steel Structures", Department: domain.DeptCIVIL, Semester: 6, Credits: 4},
	{Code: "CE502", Name: "Foundation Engineering", Department: domain.DeptCIVIL, Semester: 6, Credits: 3},
	{Code: "CE503", Name: "Irrigation Engineering", Department: domain.DeptCIVIL, Semester: 6, Credits: 3},
	{Code: "CE504", Name: "Estimation and Quantity Surveying", Department: domain.DeptCIVIL, Semester: 6, Credits: 3},

	// IT
	{Code: "IT201", Name: "Data Structures", Department: domain.DeptIT, Semester: 3, Credits: 4},
	{Code: "IT202", Name: "Object Oriented Programming through Java", Department: domain.DeptIT, Semester: 3, Credits: 3},
	{Code: "IT203", Name: "Digital Logic Design", Department: domain.DeptIT, Semester: 3, Credits: 3},
	{Code: "IT204", Name: "Computer Organization", Department: domain.DeptIT, Semester: 3, Credits: 3},
	{Code: "IT301", Name: "Database Management Systems", Department: domain.DeptIT, Semester: 4, Credits: 4},
	{Code: "IT302", Name: "Operating Systems", Department: domain.DeptIT, Semester: 4, Credits: 3},
	{Code: "IT303", Name: "Computer Networks", Department: domain.DeptIT, Semester: 4, Credits: 3},
	{Code: "IT304", Name: "Software Engineering", Department: domain.DeptIT, Semester: 4, Credits: 3},
	{Code: "IT401", Name: "Python Programming", Department: domain.DeptIT, Semester: 5, Credits: 3},
	{Code: "IT402", Name: "Web Technologies", Department: domain.DeptIT, Semester: 5, Credits: 3},
	{Code: "IT403", Name: "Data Warehousing and Data Mining", Department: domain.DeptIT, Semester: 5, Credits: 3},
	{Code: "IT404", Name: "Network Security", Department: domain.DeptIT, Semester: 5, Credits: 3},
	{Code: "IT501", Name: "Mobile Computing", Department: domain.DeptIT, Semester: 6, Credits: 3},
	{Code: "IT502", Name: "Cloud Computing", Department: domain.DeptIT, Semester: 6, Credits: 3},
	{Code: "IT503", Name: "Machine Learning", Department: domain.DeptIT, Semester: 6, Credits: 3},
	{Code: "IT504", Name: "Information Retrieval Systems", Department: domain.DeptIT, Semester: 6, Credits: 3},
}
