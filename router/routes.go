package router

// Portal paths.
const (
	PathLogin             = "/"
	PathServiceRequests   = "/service-requests"
	PathStudentManagement = "/student-management"
)

// Component identifiers rendered by the portal shell.
const (
	ComponentLogin             = "Login"
	ComponentSideBar           = "AppSideBar"
	ComponentServiceRequest    = "ServiceRequest"
	ComponentStudentManagement = "StudentManagement"
)

// DefaultRoutes returns the portal route table: the public login page and two
// protected sections rendered inside the sidebar layout.
func DefaultRoutes() []Route {
	return []Route{
		{
			Path:      PathLogin,
			Name:      "Login",
			Component: ComponentLogin,
		},
		{
			Path:      PathServiceRequests,
			Component: ComponentSideBar,
			Meta:      RequiresAuth(true),
			Children: []Route{
				{Path: "", Name: "ServiceRequests", Component: ComponentServiceRequest},
			},
		},
		{
			Path:      PathStudentManagement,
			Component: ComponentSideBar,
			Meta:      RequiresAuth(true),
			Children: []Route{
				{Path: "", Name: "StudentManagement", Component: ComponentStudentManagement},
			},
		},
	}
}
